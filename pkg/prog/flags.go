package prog

import "flag"

// FlagSet wraps a [flag.FlagSet], adding flags shared by more than one
// subprogram. Each shared flag is registered the first time it is asked for.
type FlagSet struct {
	*flag.FlagSet
	json   *bool
	config *string
}

// JSON returns a pointer to the value of the -json flag.
func (fs *FlagSet) JSON() *bool {
	if fs.json == nil {
		var json bool
		fs.BoolVar(&json, "json", false,
			"Show the output from -buildinfo, -changes or the headless backend in JSON")
		fs.json = &json
	}
	return fs.json
}

// ConfigPath returns a pointer to the value of the -config flag.
func (fs *FlagSet) ConfigPath() *string {
	if fs.config == nil {
		var config string
		fs.StringVar(&config, "config", "",
			"Path to the configuration file; defaults to vapo.yaml if it exists")
		fs.config = &config
	}
	return fs.config
}
