package transaction

import (
	"go.uber.org/zap"
)

// SendAssetsForm composes a SEND_ASSETS transaction transferring selected
// assets to another account.
type SendAssetsForm struct {
	FormController

	recipient string
	assets    []string
}

// NewSendAssetsForm creates a form for the given asset selection.
func NewSendAssetsForm(maker MakerSource, selection []string, log *zap.Logger) *SendAssetsForm {
	f := &SendAssetsForm{assets: append([]string(nil), selection...)}
	f.Initialize(f, SendAssetsType, maker, log)
	f.Validate()
	return f
}

// SetRecipient sets the name of the receiving account.
func (f *SendAssetsForm) SetRecipient(name string) {
	f.recipient = name
	f.Validate()
}

// Recipient returns the receiving account name.
func (f *SendAssetsForm) Recipient() string {
	return f.recipient
}

// CheckComplete implements Hooks.
func (f *SendAssetsForm) CheckComplete() bool {
	return f.recipient != "" && len(f.assets) > 0
}

// ComposeBody implements Hooks.
func (f *SendAssetsForm) ComposeBody() (*Body, error) {
	b := f.FormatBody()
	b.AccountName = f.recipient
	b.AssetIdentifiers = append([]string(nil), f.assets...)
	return b, nil
}

// DecorateTransaction implements Hooks.
func (f *SendAssetsForm) DecorateTransaction(tx *Transaction) {
	tx.SetAssetsUtilized(f.assets)
}
