package descriptor

// Template identifies the output-script shape a descriptor's outer
// wrapper functions describe.
type Template string

const (
	P2PKH     Template = "pkh"
	P2WPKH    Template = "wpkh"
	P2SH      Template = "sh"
	P2WSH     Template = "wsh"
	P2TR      Template = "tr"
	P2SHWPKH  Template = "sh-wpkh"
	P2SHWSH   Template = "sh-wsh"
	Unknown   Template = "unknown"
)

func (t Template) String() string { return string(t) }
