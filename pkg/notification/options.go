package notification

// NotificationManagerOption is a function that configures a NotificationManager
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithTwilio adds an SMS notifier with the provided Twilio configuration
func WithTwilio(config TwilioConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		smsNotifier := NewSMSNotifier(config)
		nm.RegisterNotifier(SMSSystem, smsNotifier)
		return nil
	}
}

// WithSignupOtpTemplates registers the signup one-time-passcode templates
func WithSignupOtpTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		if err := nm.RegisterNotification(SignupOtpEmail, EmailSystem, NoticeTemplate{
			Subject: "Verify your email",
			Text:    "Your verification code is: {{.Passcode}}",
		}); err != nil {
			return err
		}
		return nm.RegisterNotification(SignupOtpSms, SMSSystem, NoticeTemplate{
			Subject: "Verify your mobile",
			Text:    "Your verification code is: {{.Passcode}}",
		})
	}
}

// WithLoginOtpTemplates registers the login one-time-passcode templates
func WithLoginOtpTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		if err := nm.RegisterNotification(LoginOtpEmail, EmailSystem, NoticeTemplate{
			Subject: "Your login code",
			Text:    "Your login code is: {{.Passcode}}",
		}); err != nil {
			return err
		}
		return nm.RegisterNotification(LoginOtpSms, SMSSystem, NoticeTemplate{
			Subject: "Your login code",
			Text:    "Your login code is: {{.Passcode}}",
		})
	}
}

// WithPasswordResetTemplate registers the password reset templates
func WithPasswordResetTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		if err := nm.RegisterNotification(PasswordResetOtp, EmailSystem, NoticeTemplate{
			Subject: "Password Reset Request",
			Text:    "Your password reset code is: {{.Passcode}}",
		}); err != nil {
			return err
		}
		return nm.RegisterNotification(PasswordResetOtp, SMSSystem, NoticeTemplate{
			Subject: "Password Reset Request",
			Text:    "Your password reset code is: {{.Passcode}}",
		})
	}
}

// WithPaymentReceiptTemplate registers the payment receipt template
func WithPaymentReceiptTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(PaymentReceipt, EmailSystem, NoticeTemplate{
			Subject: "Your subscription is active",
			Text:    "Thanks for subscribing. Plan: {{.PlanCode}}, amount: {{.Amount}} {{.Currency}}.",
		})
	}
}

// WithDefaultTemplates registers all default notice templates
func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		options := []NotificationManagerOption{
			WithSignupOtpTemplates(),
			WithLoginOtpTemplates(),
			WithPasswordResetTemplate(),
			WithPaymentReceiptTemplate(),
		}

		for _, opt := range options {
			if err := opt(nm); err != nil {
				return err
			}
		}

		return nil
	}
}

// NewNotificationManagerWithOptions creates a new notification manager with the provided options
func NewNotificationManagerWithOptions(opts ...NotificationManagerOption) (*NotificationManager, error) {
	notificationManager := NewNotificationManager()

	for _, opt := range opts {
		if err := opt(notificationManager); err != nil {
			return nil, err
		}
	}

	return notificationManager, nil
}
