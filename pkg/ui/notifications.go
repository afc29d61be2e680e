package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("socialscraper").Show($toast)
	`, title, message)

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// DesktopNotifier announces finished invocations on the console and, when
// the platform supports it, as a desktop notification
type DesktopNotifier struct {
	sender NotificationSender
}

// NewDesktopNotifier picks the sender for the current platform
func NewDesktopNotifier() *DesktopNotifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return NewDesktopNotifierWithSender(sender)
}

// NewDesktopNotifierWithSender uses sender; a nil sender prints only
func NewDesktopNotifierWithSender(sender NotificationSender) *DesktopNotifier {
	return &DesktopNotifier{sender: sender}
}

// SendSuccess announces a completed invocation
func (n *DesktopNotifier) SendSuccess(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", successStyle.Render(title), message)
	n.send(title, message)
}

// SendError announces a failed invocation
func (n *DesktopNotifier) SendError(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", errorStyle.Render(title), Red(message))
	n.send(title, message)
}

func (n *DesktopNotifier) send(title, message string) {
	if n.sender == nil {
		return
	}
	// desktop notifications are best effort
	_ = n.sender.Send(title, message)
}
