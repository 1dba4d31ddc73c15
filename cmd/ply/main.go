// Command ply converts property lists between the binary, XML, JSON,
// OpenStep and GNUstep serializations, with YAML as an extra interchange
// format.
package main

import (
	"fmt"
	"io"
	"os"

	flags "github.com/jessevdk/go-flags"
	yaml "gopkg.in/yaml.v2"

	plist "github.com/plistlib/go-plist"
)

type options struct {
	Convert string `short:"c" long:"convert" description:"output format: binary, xml, json, openstep, gnustep or yaml" default:"xml"`
	Pretty  bool   `short:"p" long:"pretty" description:"pretty-print textual output"`
	Output  string `short:"o" long:"output" description:"output file (default standard output)"`
	Detect  bool   `short:"d" long:"detect" description:"print the detected input format and exit"`

	Args struct {
		File string `positional-arg-name:"file"`
	} `positional-args:"yes"`
}

var formatsByName = map[string]plist.Format{
	"binary":   plist.BinaryFormat,
	"xml":      plist.XMLFormat,
	"json":     plist.JSONFormat,
	"openstep": plist.OpenStepFormat,
	"gnustep":  plist.GNUstepFormat,
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(&opts); err != nil {
		fmt.Fprintln(os.Stderr, "ply:", err)
		os.Exit(1)
	}
}

func run(opts *options) error {
	data, err := readInput(opts.Args.File)
	if err != nil {
		return err
	}

	if opts.Detect {
		fmt.Println(plist.DetectFormat(data))
		return nil
	}

	pval, _, err := decodeInput(data)
	if err != nil {
		return err
	}

	out, err := convert(pval, opts.Convert, opts.Pretty)
	if err != nil {
		return err
	}
	return writeOutput(opts.Output, out)
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// decodeInput parses the buffer as a property list, falling back to
// YAML when no plist serialization matches.
func decodeInput(data []byte) (plist.Value, plist.Format, error) {
	if plist.DetectFormat(data) != plist.UnknownFormat {
		return plist.Decode(data)
	}
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, plist.UnknownFormat, fmt.Errorf("input is neither a property list nor YAML: %v", err)
	}
	buf, err := plist.Marshal(yamlToPlain(doc), plist.XMLFormat)
	if err != nil {
		return nil, plist.UnknownFormat, err
	}
	return plist.Decode(buf)
}

// yamlToPlain rewrites yaml.v2's map[interface{}]interface{} nodes into
// string-keyed maps so they can be marshaled as dictionaries.
func yamlToPlain(v interface{}) interface{} {
	switch v := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = yamlToPlain(val)
		}
		return out
	case []interface{}:
		for i := range v {
			v[i] = yamlToPlain(v[i])
		}
		return v
	}
	return v
}

func convert(pval plist.Value, target string, pretty bool) ([]byte, error) {
	if target == "yaml" {
		var doc interface{}
		buf, err := plist.Encode(pval, plist.XMLFormat, plist.EncodeOptions{})
		if err != nil {
			return nil, err
		}
		if _, err := plist.Unmarshal(buf, &doc); err != nil {
			return nil, err
		}
		return yaml.Marshal(doc)
	}
	format, ok := formatsByName[target]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q", target)
	}
	return plist.Encode(pval, format, plist.EncodeOptions{Prettify: pretty})
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
