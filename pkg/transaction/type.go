package transaction

// Type is the type of a transaction as understood by the node.
type Type string

// Transaction types produced by the wallet forms.
const (
	RunScriptType  Type = "RUN_SCRIPT"
	SendAssetsType Type = "SEND_ASSETS"
)

// String implements the stringer interface.
func (t Type) String() string {
	switch t {
	case RunScriptType:
		return "run script transaction"
	case SendAssetsType:
		return "send assets transaction"
	default:
		return ""
	}
}
