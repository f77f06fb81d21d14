package notification

import (
	"testing"
)

func TestNewNotificationManager(t *testing.T) {
	nm := NewNotificationManager()
	if nm == nil {
		t.Error("NewNotificationManager returned nil")
	}
	if nm.notifiers == nil {
		t.Error("notifiers map not initialized")
	}
	if nm.noticeRegistry == nil {
		t.Error("noticeRegistry map not initialized")
	}
}

func TestRegisterNotifier(t *testing.T) {
	nm := NewNotificationManager()
	mockNotifier := &MockNotifier{}

	// Test registering a notifier
	nm.RegisterNotifier(EmailSystem, mockNotifier)
	if n, exists := nm.notifiers[EmailSystem]; !exists {
		t.Error("Notifier not registered")
	} else if n != mockNotifier {
		t.Error("Wrong notifier registered")
	}

	// Test overwriting existing notifier
	newMockNotifier := &MockNotifier{}
	nm.RegisterNotifier(EmailSystem, newMockNotifier)
	if n := nm.notifiers[EmailSystem]; n != newMockNotifier {
		t.Error("Notifier not overwritten")
	}
}

func TestRegisterNotification(t *testing.T) {
	nm := NewNotificationManager()

	tests := []struct {
		name        string
		noticeType  NoticeType
		system      NotificationSystem
		template    NoticeTemplate
		shouldError bool
	}{
		{
			name:        "Valid registration with Text",
			noticeType:  SignupOtpEmail,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Verify your email", Text: "Your verification code is: {{.Passcode}}"},
			shouldError: false,
		},
		{
			name:        "Valid registration with Html only",
			noticeType:  PaymentReceipt,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Receipt", Html: "<p>Thanks for subscribing</p>"},
			shouldError: false,
		},
		{
			name:        "Empty notice type",
			noticeType:  "",
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Verify your email"},
			shouldError: true,
		},
		{
			name:        "Empty system",
			noticeType:  SignupOtpEmail,
			system:      "",
			template:    NoticeTemplate{Subject: "Verify your email"},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := nm.RegisterNotification(tt.noticeType, tt.system, tt.template)
			if tt.shouldError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSend(t *testing.T) {
	nm := NewNotificationManager()
	mockNotifier := &MockNotifier{}
	nm.RegisterNotifier(SMSSystem, mockNotifier)

	err := nm.RegisterNotification(LoginOtpSms, SMSSystem, NoticeTemplate{
		Subject: "Your login code",
		Text:    "Your login code is: {{.Passcode}}",
	})
	if err != nil {
		t.Fatalf("failed to register notification: %v", err)
	}

	data := NotificationData{To: "+15551230000", Data: map[string]string{"Passcode": "123456"}}
	if err := nm.Send(LoginOtpSms, SMSSystem, data); err != nil {
		t.Errorf("Send failed: %v", err)
	}
	last, ok := mockNotifier.Last()
	if !ok || len(mockNotifier.Deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(mockNotifier.Deliveries))
	}
	if last.Data.To != "+15551230000" {
		t.Error("wrong recipient recorded")
	}
	if last.NoticeType != LoginOtpSms {
		t.Error("wrong notice type recorded")
	}

	// unknown notice type
	if err := nm.Send("unknown", SMSSystem, data); err == nil {
		t.Error("expected error for unregistered notice type")
	}

	// registered type, unregistered system
	if err := nm.Send(LoginOtpSms, EmailSystem, data); err == nil {
		t.Error("expected error for unregistered system")
	}
}

func TestWithDefaultTemplates(t *testing.T) {
	nm, err := NewNotificationManagerWithOptions(WithDefaultTemplates())
	if err != nil {
		t.Fatalf("failed to build manager: %v", err)
	}

	for _, noticeType := range []NoticeType{SignupOtpEmail, LoginOtpEmail, PasswordResetOtp, PaymentReceipt} {
		if _, ok := nm.noticeRegistry[noticeType][EmailSystem]; !ok {
			t.Errorf("missing email template for %s", noticeType)
		}
	}
	for _, noticeType := range []NoticeType{SignupOtpSms, LoginOtpSms} {
		if _, ok := nm.noticeRegistry[noticeType][SMSSystem]; !ok {
			t.Errorf("missing sms template for %s", noticeType)
		}
	}
}
