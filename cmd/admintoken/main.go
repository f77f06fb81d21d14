// Package main mints admin JWTs for the session administration API. The
// token carries a roles claim checked by the admin middleware; hand the
// output to curl or a dashboard, never to end users.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	secret := flag.String("secret", "change-me-in-production", "Secret the portal verifies admin tokens with (ADMIN_JWT_SECRET)")
	subject := flag.String("subject", "ops", "Subject of the token (operator id)")
	roles := flag.String("roles", "admin", "Comma-separated roles claim")
	expiry := flag.Duration("expiry", time.Hour, "Token expiry duration (e.g. 30m, 1h)")
	verbose := flag.Bool("v", false, "Print claims alongside the token")
	flag.Parse()

	now := time.Now()
	roleList := strings.Split(*roles, ",")
	for i := range roleList {
		roleList[i] = strings.TrimSpace(roleList[i])
	}

	claims := jwt.MapClaims{
		"sub":   *subject,
		"roles": roleList,
		"iat":   now.Unix(),
		"exp":   now.Add(*expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(*secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to sign token: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Subject: %s\nRoles: %s\nExpires: %s\nToken: %s\n",
			*subject, strings.Join(roleList, ", "), now.Add(*expiry).Format(time.RFC3339), signed)
		return
	}
	fmt.Println(signed)
}
