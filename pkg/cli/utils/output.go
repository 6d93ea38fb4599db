package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/chain"
	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/sdk"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// JSON reports whether --format json was requested.
func (rt *Runtime) JSON() bool {
	return rt.Flags.Format == FormatJSON
}

// PrintJSON writes v as indented JSON.
func (rt *Runtime) PrintJSON(v interface{}) error {
	enc := json.NewEncoder(rt.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table returns a tabwriter over the runtime output. Callers must Flush.
func (rt *Runtime) Table() *tabwriter.Writer {
	return tabwriter.NewWriter(rt.Out, 0, 0, 3, ' ', 0)
}

// Printf writes to the runtime output.
func (rt *Runtime) Printf(format string, args ...interface{}) {
	fmt.Fprintf(rt.Out, format, args...)
}

// FormatSOL renders lamports as SOL.
func FormatSOL(lamports uint64) string {
	return strconv.FormatFloat(chain.FromBaseUnits(lamports, 9), 'f', -1, 64) + " SOL"
}

// FormatNOS renders token base units as NOS.
func FormatNOS(units uint64) string {
	return strconv.FormatFloat(chain.FromBaseUnits(units, sdk.TokenDecimals), 'f', -1, 64) + " NOS"
}

// ParseAmount parses a whole-unit amount flag into base units. An empty
// string yields nil.
func ParseAmount(flag, value string, decimals uint8) (*uint64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		return nil, sdkerrors.NewValidationError(flag, "must be a non-negative number", value)
	}
	n := chain.ToBaseUnits(f, decimals)
	return &n, nil
}

// ReportFailure prints err with a hint about what may have happened
// remotely.
func ReportFailure(w io.Writer, err error) {
	fmt.Fprintln(w, "❌ "+errorStyle.Render("Error: "+err.Error()))

	var balErr *sdkerrors.InsufficientBalanceError
	if errors.As(err, &balErr) {
		for _, s := range balErr.Shortfalls {
			fmt.Fprintln(w, "   "+hintStyle.Render(fmt.Sprintf("Missing %d %s (have %d, need %d)", s.Missing(), s.Asset, s.Have, s.Need)))
		}
	}

	switch sdkerrors.Classify(err) {
	case sdkerrors.OutcomeNothingHappened:
		fmt.Fprintln(w, "   "+hintStyle.Render("Nothing was submitted."))
	case sdkerrors.OutcomeRejected:
		fmt.Fprintln(w, "   "+hintStyle.Render("The request was refused."))
	case sdkerrors.OutcomeMaybeSubmitted:
		fmt.Fprintln(w, "   ⚠️  "+hintStyle.Render("The operation may have taken effect. Check its state before retrying."))
	}
}
