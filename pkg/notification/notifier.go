package notification

// NotificationSystem represents a delivery channel (e.g., email, SMS).
type NotificationSystem string

// NoticeType represents a kind of notice (e.g., "signup_otp", "payment_receipt").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
	SMSSystem   NotificationSystem = "sms"

	SignupOtpEmail   NoticeType = "signup_otp_email"
	SignupOtpSms     NoticeType = "signup_otp_sms"
	LoginOtpEmail    NoticeType = "login_otp_email"
	LoginOtpSms      NoticeType = "login_otp_sms"
	PasswordResetOtp NoticeType = "password_reset_otp"
	PaymentReceipt   NoticeType = "payment_receipt"
)

// NoticeTemplate holds the renderable content for a notice.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type NotificationData struct {
	To      string            // Recipient identifier (email address or phone number)
	Subject string            // Optional subject override
	Body    string            // Pre-rendered content, used when no template applies
	Data    map[string]string // Template fields (e.g., Passcode, PlanCode)
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
