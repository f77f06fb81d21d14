package notification

// Delivery is one notification a MockNotifier captured instead of sending.
type Delivery struct {
	NoticeType NoticeType
	Data       NotificationData
	Template   NoticeTemplate
}

// MockNotifier records deliveries in memory so tests can assert on what
// would have gone out over email or SMS.
type MockNotifier struct {
	Deliveries []Delivery
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.Deliveries = append(m.Deliveries, Delivery{
		NoticeType: noticeType,
		Data:       notification,
		Template:   template,
	})
	return nil
}

// Last returns the most recent delivery.
func (m *MockNotifier) Last() (Delivery, bool) {
	if len(m.Deliveries) == 0 {
		return Delivery{}, false
	}
	return m.Deliveries[len(m.Deliveries)-1], true
}
