package script

// Doc describes a name available to scripts.
type Doc struct {
	Name      string
	Signature string
	Summary   string
}

// NamespaceDocs documents the members of the vapo namespace.
var NamespaceDocs = []Doc{
	{"dstr", "vapo.dstr([s])", "Creates a string cell, initially s or the empty string."},
	{"dnum", "vapo.dnum([n])", "Creates a number cell, initially n or 0."},
	{"dint", "vapo.dint([n])", "Creates an integer cell, initially n or 0."},
	{"dbool", "vapo.dbool([b])", "Creates a boolean cell, initially b or false."},
	{"quit", "vapo.quit()", "Asks the host to close after the current frame."},
	{"log", "vapo.log(...)", "Writes the arguments, separated by tabs, to the debug log."},
}

// MethodDocs documents the methods of cells and the frame context.
var MethodDocs = []Doc{
	{"get", "cell:get()", "Returns the current value of the cell."},
	{"set", "cell:set(v)", "Replaces the value of the cell; v must convert to the cell's type."},
	{"len", "s:len()", "Returns the length of a string cell in bytes."},
	{"add", "n:add(d)", "Adds d to a number or integer cell and returns the new value."},
	{"toggle", "b:toggle()", "Negates a boolean cell and returns the new value."},
	{"label", "ctx:label(text)", "Shows a line of text."},
	{"button", "ctx:button(text)", "Shows a button; returns true in the frame it is clicked."},
	{"input", "ctx:input(s)", "Shows an input field editing the string cell s."},
}

// LookupDoc finds the documentation of a namespace member or a method.
func LookupDoc(name string, method bool) (Doc, bool) {
	docs := NamespaceDocs
	if method {
		docs = MethodDocs
	}
	for _, d := range docs {
		if d.Name == name {
			return d, true
		}
	}
	return Doc{}, false
}
