package train

import "fmt"

// Mode selects where a training run executes. It is passed explicitly on
// every Fit call rather than stored on the model so that two calls cannot
// silently inherit state from each other.
type Mode string

const (
	// ModeLocal runs the fit in the calling process.
	ModeLocal Mode = "local"

	// ModeCloud serializes the call and runs it in a managed training job.
	ModeCloud Mode = "cloud"
)

func (m Mode) Validate() error {
	switch m {
	case ModeLocal, ModeCloud:
		return nil
	default:
		return fmt.Errorf("unknown training mode '%s', expected '%s' or '%s'", m, ModeLocal, ModeCloud)
	}
}
