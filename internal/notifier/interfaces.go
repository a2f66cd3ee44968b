package notifier

// INotifier delivers a templated notification to one recipient. Implementations
// must be safe for concurrent use.
type INotifier interface {
	NotifyFromTemplate(to string, subject string, templateName string, data any) error
}
