package weighment

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Operator-facing messages. They are rendered verbatim.
const (
	MsgExitRecorded      = "Exit weight already recorded and cannot be updated again"
	MsgInvalidExitWeight = "Please enter a valid exit weight"
	MsgSaleWeights       = "Invalid weights: for sale, exitWeight must be greater than or equal to entryWeight"
	MsgPurchaseWeights   = "Invalid weights: for purchase, entryWeight must be greater than or equal to exitWeight"
	MsgMoisture          = "Moisture must be between 0 and 100"
	MsgDust              = "Dust must be between 0 and 100"
	MsgPalletteType      = "Pallette type must be loose or packed"
	MsgBags              = "Bags and Weight/Bag must be > 0"
)

// Fallbacks used when the entries service gives no message.
const (
	FallbackSave    = "Failed to save entry"
	FallbackExit    = "Failed to update exit"
	FallbackReceipt = "Failed to download receipt"
)

// Sentinel errors for workflow operations.
var (
	ErrExitRecorded       = errors.New(MsgExitRecorded)
	ErrEntryNotFound      = errors.New("entry not found in the current list")
	ErrPromptClosed       = errors.New("exit prompt is not open")
	ErrSubmitInFlight     = errors.New("a submission is already in progress")
	ErrReceiptUnavailable = errors.New("receipt is only available for completed entries without a variance flag")
	ErrForbidden          = errors.New("your role cannot perform this action")
)

// FieldErrors maps a payload field to the message shown next to it.
// A non-empty map blocks submission.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return strings.Join(parts, "; ")
}

// ExitError is the first failed step of the exit pipeline.
type ExitError struct {
	Field   string
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func rejectExit(field, msg string) *ExitError {
	return &ExitError{Field: field, Message: msg}
}

// ActionError wraps a collaborator failure with the action's fallback message.
type ActionError struct {
	Fallback string
	Err      error
}

func (e *ActionError) Error() string {
	return UserMessage(e.Err, e.Fallback)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// userMessager is implemented by collaborator errors that carry a server message.
type userMessager interface {
	UserMessage() string
}

// UserMessage picks the single message to show for a failed action:
// the collaborator's own message when it sent one, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var m userMessager
	if errors.As(err, &m) {
		if msg := m.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}
