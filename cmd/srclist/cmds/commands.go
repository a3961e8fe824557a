package cmds

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/srclist/srclist/pkg/config"
	"github.com/srclist/srclist/pkg/fileindex"
	"github.com/srclist/srclist/pkg/logflags"
	"github.com/srclist/srclist/pkg/srcfiles"
	"github.com/srclist/srclist/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string
	// jsonOutput is whether to print the file list as a JSON document.
	jsonOutput bool
	// longOutput is whether to print size, timestamp and checksum columns.
	longOutput bool
	// underPrefix restricts output to files under the given path prefix.
	underPrefix string
	// substitutePath is the list of path substitution rules given on the
	// command line, each one a quoted "from to" pair.
	substitutePath []string
	// verify is whether to hash the files on disk and compare them against
	// the checksums recorded in the binary.
	verify bool
	// noColor disables colorized verification output.
	noColor bool

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config
)

const srclistCommandLongDesc = `Srclist lists the source files a binary was compiled from.

It reads the debug information embedded in (or alongside) a compiled binary
and prints the path of every original source file that contributed to it,
along with whatever size, timestamp and checksum information the debug format
recorded. PDB files, ELF and Mach-O executables with DWARF debug data are
supported.

No debugger, compiler or build system is required: srclist only inspects the
file it is given.`

// New returns an initialized command tree.
func New(docCall bool) *cobra.Command {
	// Config setup and load.
	conf = config.LoadConfig()

	// Main srclist root command.
	rootCommand = &cobra.Command{
		Use:   "srclist <binary>",
		Short: "Srclist lists the source files a binary was compiled from.",
		Long:  srclistCommandLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() != rootCommand.Name() {
				return nil
			}
			if len(args) == 0 {
				return errors.New("you must provide a path to a binary")
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(listCmd(args[0]))
		},
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debug logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", `Comma separated list of components that should produce debug output (see 'srclist help log')`)
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor (see 'srclist help log').")

	rootCommand.Flags().BoolVar(&jsonOutput, "json", false, "Print the file list as a JSON document.")
	rootCommand.Flags().BoolVarP(&longOutput, "long", "l", conf.Long, "Print size, timestamp and checksum columns in addition to the path.")
	rootCommand.Flags().StringVar(&underPrefix, "under", "", "Only print files under the given path prefix.")
	rootCommand.Flags().StringArrayVar(&substitutePath, "substitute-path", nil, `Rewrite recorded path prefixes, e.g. --substitute-path '/build/src /home/user/src'. May be repeated; rules from the configuration file apply first.`)
	rootCommand.Flags().BoolVar(&verify, "verify", false, "Hash each listed file on disk and compare it against the checksum recorded in the binary.")
	rootCommand.Flags().BoolVar(&noColor, "no-color", conf.NoColor, "Disable colorized output.")

	// 'version' subcommand.
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Srclist\n%s\n", version.SrclistVersion)
			fmt.Printf("Build flags: %s\n", version.BuildInfo())
		},
	}
	rootCommand.AddCommand(versionCommand)

	rootCommand.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "Help about logging flags.",
		Long: `Logging can be enabled by specifying the --log flag and using the
--log-output flag to select which components should produce logs.

The argument of --log-output must be a comma separated list of component
names selected from this list:


	pdb	Log PDB file decoding
	objfile	Log object container dispatch
	line	Log DWARF line table decoding

Additionally --log-dest can be used to specify where the logs should be
written. If the argument is a number it will be interpreted as a file
descriptor, otherwise as a file path.
`})

	return rootCommand
}

func listCmd(path string) int {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer logflags.Close()

	rules, err := substitutionRules()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	files, err := srcfiles.ParsePath(path)
	if err != nil {
		if jsonOutput {
			printJSON(nil, err)
		} else if errors.Is(err, srcfiles.ErrMissingDebugSymbols) {
			fmt.Fprintf(os.Stderr, "%s has no debug symbols to read source files from\n", path)
		} else {
			fmt.Fprintf(os.Stderr, "could not list source files of %s: %v\n", path, err)
		}
		return 1
	}

	for i := range files {
		files[i].Path = rules.Apply(files[i].Path)
	}
	if underPrefix != "" {
		files = fileindex.New(files).Under(underPrefix)
	}

	if jsonOutput {
		return printJSON(files, nil)
	}
	if verify {
		return verifyFiles(files)
	}
	printFiles(files)
	return 0
}

// substitutionRules combines the rules from the configuration file with the
// ones given on the command line, in that order.
func substitutionRules() (config.SubstitutePathRules, error) {
	rules := conf.SubstitutePath
	for _, arg := range substitutePath {
		fields := config.SplitQuotedFields(arg, '"')
		if len(fields) != 2 {
			return nil, fmt.Errorf("substitute-path rule %q must have exactly two fields", arg)
		}
		rules = append(rules, config.SubstitutePathRule{From: fields[0], To: fields[1]})
	}
	return rules, nil
}

func printFiles(files []srcfiles.FileRecord) {
	if !longOutput {
		for i := range files {
			fmt.Println(files[i].Path)
		}
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	for i := range files {
		size, timestamp, sum := "-", "-", "-"
		if files[i].Size != 0 {
			size = fmt.Sprintf("%d", files[i].Size)
		}
		if files[i].Timestamp != 0 {
			timestamp = fmt.Sprintf("%d", files[i].Timestamp)
		}
		if files[i].Checksum != nil {
			sum = files[i].Checksum.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", size, timestamp, sum, files[i].Path)
	}
	w.Flush()
}

type jsonChecksum struct {
	Kind string `json:"kind"`
	Sum  string `json:"sum"`
}

type jsonFile struct {
	Path      string        `json:"path"`
	Size      uint64        `json:"size,omitempty"`
	Timestamp uint64        `json:"timestamp,omitempty"`
	Checksum  *jsonChecksum `json:"checksum,omitempty"`
}

type jsonResult struct {
	Status string     `json:"status"`
	Error  string     `json:"error,omitempty"`
	Files  []jsonFile `json:"files"`
}

func printJSON(files []srcfiles.FileRecord, err error) int {
	result := jsonResult{Status: "OK", Files: []jsonFile{}}
	if err != nil {
		result.Status = "FAILURE"
		result.Error = err.Error()
	}
	for i := range files {
		jf := jsonFile{Path: files[i].Path, Size: files[i].Size, Timestamp: files[i].Timestamp}
		if kind, sum, ok := checksumParts(files[i].Checksum); ok {
			jf.Checksum = &jsonChecksum{Kind: kind, Sum: sum}
		}
		result.Files = append(result.Files, jf)
	}
	out, merr := json.MarshalIndent(result, "", "\t")
	if merr != nil {
		fmt.Fprintf(os.Stderr, "could not marshal output: %v\n", merr)
		return 1
	}
	fmt.Printf("%s\n", out)
	if err != nil {
		return 1
	}
	return 0
}

func checksumParts(sum srcfiles.Checksum) (kind, hexsum string, ok bool) {
	switch s := sum.(type) {
	case srcfiles.MD5:
		return "MD5", hex.EncodeToString(s[:]), true
	case srcfiles.SHA1:
		return "SHA1", hex.EncodeToString(s[:]), true
	case srcfiles.SHA256:
		return "SHA256", hex.EncodeToString(s[:]), true
	}
	return "", "", false
}

const (
	terminalHighlightEscapeCode = "\033[%2dm"
	terminalResetEscapeCode     = "\033[0m"

	ansiRed    = 31
	ansiGreen  = 32
	ansiYellow = 33
)

func verifyFiles(files []srcfiles.FileRecord) int {
	out := getColorableWriter()
	color := !noColor && out != nil
	if out == nil {
		out = os.Stdout
	}

	status := func(code int, word, path string) {
		if color {
			fmt.Fprintf(out, terminalHighlightEscapeCode, code)
			fmt.Fprintf(out, "%-8s", word)
			fmt.Fprint(out, terminalResetEscapeCode)
		} else {
			fmt.Fprintf(out, "%-8s", word)
		}
		fmt.Fprintln(out, path)
	}

	r := 0
	for i := range files {
		switch verifyFile(&files[i]) {
		case verifyOk:
			status(ansiGreen, "ok", files[i].Path)
		case verifyMissing:
			status(ansiYellow, "missing", files[i].Path)
			r = 1
		case verifyMismatch:
			status(ansiRed, "mismatch", files[i].Path)
			r = 1
		case verifySkipped:
			status(ansiYellow, "skipped", files[i].Path)
		}
	}
	return r
}

type verifyResult uint8

const (
	verifyOk verifyResult = iota
	verifyMissing
	verifyMismatch
	verifySkipped
)

// verifyFile hashes the file f.Path refers to on disk and compares the
// digest with the checksum recorded in the binary. Records without a
// checksum can not be verified and are skipped.
func verifyFile(f *srcfiles.FileRecord) verifyResult {
	if f.Checksum == nil {
		return verifySkipped
	}
	var h hash.Hash
	switch f.Checksum.(type) {
	case srcfiles.MD5:
		h = md5.New()
	case srcfiles.SHA1:
		h = sha1.New()
	case srcfiles.SHA256:
		h = sha256.New()
	default:
		return verifySkipped
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return verifyMissing
	}
	defer fh.Close()
	if _, err := io.Copy(h, fh); err != nil {
		return verifyMissing
	}
	_, want, _ := checksumParts(f.Checksum)
	if !strings.EqualFold(hex.EncodeToString(h.Sum(nil)), want) {
		return verifyMismatch
	}
	return verifyOk
}
