package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"expenseguard/importer"
	"expenseguard/risk"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

type reportOptions struct {
	at          string
	asJSON      bool
	minSeverity string
	limits      map[string]string
}

func newReportCommand() *cobra.Command {
	opts := reportOptions{}

	cmd := &cobra.Command{
		Use:   "report <file.csv>",
		Short: "评估 CSV 中的消费记录并输出风险报告",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("打开文件失败: %w", err)
			}
			defer f.Close()
			return runReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), f, opts, time.Now())
		},
	}

	minDefault := os.Getenv("RISKCTL_MIN_SEVERITY")
	if minDefault == "" {
		minDefault = string(risk.SeverityLow)
	}

	cmd.Flags().StringVar(&opts.at, "at", "", "评估日期 YYYY-MM-DD，默认今天")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "以 JSON 输出完整报告")
	cmd.Flags().StringVar(&opts.minSeverity, "min-severity", minDefault, "只显示不低于该等级的条目 (low|medium|high|critical)")
	cmd.Flags().StringToStringVar(&opts.limits, "limit", nil, "类别月度限额，如 --limit Food=5000")

	return cmd
}

// categoryConfigs 内置类别加上命令行限额
func categoryConfigs(limits map[string]string) ([]risk.CategoryConfig, error) {
	cats := make([]risk.CategoryConfig, 0, len(risk.Categories))
	for _, c := range risk.Categories {
		cats = append(cats, risk.CategoryConfig{Name: c.Name, Emoji: c.Emoji})
	}
	// 自定义类别按名称排序，保证输出稳定
	extra := make([]string, 0, len(limits))
	for name := range limits {
		if !risk.IsKnownCategory(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		cats = append(cats, risk.CategoryConfig{Name: name, Emoji: risk.CategoryEmoji(name)})
	}
	for i := range cats {
		v, ok := limits[cats[i].Name]
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			return nil, fmt.Errorf("无效的限额 %s=%s", cats[i].Name, v)
		}
		cats[i].MonthlyLimit = &d
	}
	return cats, nil
}

func runReport(out, errOut io.Writer, in io.Reader, opts reportOptions, now time.Time) error {
	at := now
	if opts.at != "" {
		t, err := time.ParseInLocation(dateLayout, opts.at, time.Local)
		if err != nil {
			return fmt.Errorf("--at 格式错误，应为 %s", dateLayout)
		}
		at = t
	}

	minSev, ok := risk.ParseSeverity(strings.ToLower(opts.minSeverity))
	if !ok {
		return fmt.Errorf("无效的等级 %q", opts.minSeverity)
	}

	cats, err := categoryConfigs(opts.limits)
	if err != nil {
		return err
	}

	res, err := (&importer.Parser{Location: time.Local}).Parse(in)
	if err != nil {
		return err
	}
	for _, rowErr := range res.Errors {
		fmt.Fprintf(errOut, "跳过 %s\n", rowErr.Error())
	}

	eval := risk.Evaluate(res.Expenses(), cats, at)

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(eval)
	}
	return writeText(out, eval, minSev)
}

func writeText(out io.Writer, eval risk.Evaluation, minSev risk.Severity) error {
	counts := risk.CountBySeverity(eval.Combined)
	fmt.Fprintf(out, "记录 %d 条，合计 %s，合规分 %d\n",
		eval.ExpenseCount, risk.FormatINR(eval.TotalAmount), eval.ComplianceScore)
	fmt.Fprintf(out, "critical %d / high %d / medium %d / low %d\n\n",
		counts[risk.SeverityCritical], counts[risk.SeverityHigh],
		counts[risk.SeverityMedium], counts[risk.SeverityLow])

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tTYPE\tDATE\tCATEGORY\tAMOUNT\tMESSAGE")
	for _, f := range risk.FilterBySeverity(eval.Combined, minSev) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			strings.ToUpper(string(f.Severity)), f.Type,
			f.Expense.Date.Format(dateLayout), f.Expense.Category,
			risk.FormatINR(f.Expense.Amount.Float64()), f.Message)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	var limited []risk.LimitStatus
	for _, l := range eval.Limits {
		if l.Limit != nil {
			limited = append(limited, l)
		}
	}
	if len(limited) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSPENT\tLIMIT\tUSED\tLEVEL")
	for _, l := range limited {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%s\n",
			l.Category, risk.FormatINR(l.Spent), risk.FormatINR(*l.Limit), l.Percentage, l.RiskLevel)
	}
	return tw.Flush()
}
