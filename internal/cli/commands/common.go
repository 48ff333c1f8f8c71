package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/terzeron/feedmaker-console/internal/cli/console"
	"github.com/terzeron/feedmaker-console/internal/guard"
)

// RouteAnnotation holds the console path a command shows. "{N}" is
// replaced by the N-th positional argument.
const RouteAnnotation = "route"

// Provider returns the console of the running invocation. It is only
// valid once the root command's pre-run has completed.
type Provider func() *console.Console

func withRoute(cmd *cobra.Command, route string) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = make(map[string]string)
	}
	cmd.Annotations[RouteAnnotation] = route
	return cmd
}

// RouteFor expands the route annotation of cmd with args. Commands
// without a route are not guarded.
func RouteFor(cmd *cobra.Command, args []string) (string, bool) {
	route, ok := cmd.Annotations[RouteAnnotation]
	if !ok {
		return "", false
	}

	for i := len(args) - 1; i >= 0; i-- {
		route = strings.ReplaceAll(route, "{"+strconv.Itoa(i)+"}", url.PathEscape(args[i]))
	}
	return route, true
}

// printJSON writes raw indented, or as-is if it is not valid JSON
func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

// interactive reports whether r is a terminal
func interactive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readJSONFile reads a JSON document from path, or from in when path is "-"
func readJSONFile(path string, in io.Reader) (json.RawMessage, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}

// NavigationError turns a denied navigation into the error shown to the
// user. Allowed navigations return nil.
func NavigationError(d guard.Decision) error {
	switch d.Outcome {
	case guard.Redirect:
		return fmt.Errorf("%w: run 'feedmaker login --redirect %s'", guard.ErrLoginRequired, guard.ReturnPath(d.Target))
	case guard.NotFound:
		return d.Err()
	default:
		return nil
	}
}
