package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/contact-enricher/internal/phone"
)

var phoneCmd = &cobra.Command{
	Use:   "phone <number>...",
	Short: "Format and validate phone numbers",
	Long:  "Normalizes each number to area-exchange-subscriber form and reports why invalid numbers were rejected. With --fax, also checks whether the fax duplicates the first number.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fax, _ := cmd.Flags().GetString("fax")
		formatPhoneReport(os.Stdout, args, fax)
		return nil
	},
}

func init() {
	phoneCmd.Flags().String("fax", "", "fax number to compare against the first number")
	rootCmd.AddCommand(phoneCmd)
}

// formatPhoneReport writes one line per number to w.
func formatPhoneReport(out io.Writer, numbers []string, fax string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "INPUT\tFORMATTED\tVALID\tREGION\tREASON")
	for _, raw := range numbers {
		res := phone.Format(raw)
		region := ""
		if res.Valid {
			if ac, ok := phone.LookupAreaCode(phone.Digits(raw)); ok {
				region = ac.Region
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", raw, res.Formatted, res.Valid, region, res.Reason)
	}
	_ = w.Flush()

	if fax != "" {
		_, _ = fmt.Fprintf(out, "fax %s duplicates %s: %t\n", fax, numbers[0], phone.IsDuplicate(numbers[0], fax))
	}
}
