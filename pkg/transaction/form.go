package transaction

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrIncomplete is returned when a transaction is requested from a form that
// doesn't pass its completeness check.
var ErrIncomplete = errors.New("transaction form is incomplete")

// Hooks is implemented by concrete forms to specialize FormController.
type Hooks interface {
	// CheckComplete recomputes derived validity and reports whether the
	// form may produce a transaction.
	CheckComplete() bool
	// ComposeBody builds the transaction body.
	ComposeBody() (*Body, error)
	// DecorateTransaction attaches wallet-side metadata to the envelope.
	DecorateTransaction(*Transaction)
}

// FormController provides lifecycle shared by all transaction forms.
// Concrete forms embed it and call Initialize with themselves as Hooks.
type FormController struct {
	hooks      Hooks
	txType     Type
	maker      MakerSource
	isComplete bool
	log        *zap.Logger
}

// Initialize binds the form to its hooks, transaction type and maker.
func (f *FormController) Initialize(h Hooks, t Type, maker MakerSource, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	f.hooks = h
	f.txType = t
	f.maker = maker
	f.log = log
}

// Logger returns form logger.
func (f *FormController) Logger() *zap.Logger {
	return f.log
}

// Type returns the type of transactions produced by the form.
func (f *FormController) Type() Type {
	return f.txType
}

// Validate runs completeness check and caches its result.
func (f *FormController) Validate() bool {
	f.isComplete = f.hooks.CheckComplete()
	return f.isComplete
}

// IsComplete returns the result of the last Validate.
func (f *FormController) IsComplete() bool {
	return f.isComplete
}

// FormatBody returns a body prefilled with the form type and maker.
func (f *FormController) FormatBody() *Body {
	var b = &Body{Type: f.txType}
	if f.maker != nil {
		b.Maker = f.maker.Maker()
	}
	return b
}

// MakeTransaction validates the form, composes its body and wraps it into a
// decorated envelope.
func (f *FormController) MakeTransaction() (*Transaction, error) {
	if !f.Validate() {
		return nil, ErrIncomplete
	}
	body, err := f.hooks.ComposeBody()
	if err != nil {
		return nil, fmt.Errorf("failed to compose %s body: %w", f.txType, err)
	}
	tx := New(body)
	f.hooks.DecorateTransaction(tx)
	f.log.Debug("transaction composed",
		zap.String("uuid", tx.UUID),
		zap.Stringer("type", f.txType),
		zap.Int("assets utilized", len(tx.AssetsUtilized)))
	return tx, nil
}
