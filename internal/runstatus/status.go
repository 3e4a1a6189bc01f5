package runstatus

import "strings"

const (
	Starting     = "Starting"
	Listening    = "Listening"
	Reloaded     = "Credentials reloaded"
	Stopped      = "Stopped"
	StoppedError = "Stopped (error)"
)

const (
	KeyStarting     = "starting"
	KeyListening    = "listening"
	KeyReloaded     = "credentials reloaded"
	KeyStopped      = "stopped"
	KeyStoppedError = "stopped (error)"
)

func Key(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
