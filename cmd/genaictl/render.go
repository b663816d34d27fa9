package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/flynn-ai/genai/pkg/protocol"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	codeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	replyStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

func renderChat(w io.Writer, r *protocol.ChatResponse) {
	fmt.Fprintln(w, replyStyle.Render(r.Response))

	meta := []string{r.Model}
	if r.Metrics != nil {
		if r.Metrics.Tokens != nil {
			meta = append(meta, fmt.Sprintf("%d tokens", *r.Metrics.Tokens))
		}
		if r.Metrics.Duration != "" {
			meta = append(meta, r.Metrics.Duration)
		}
	}
	if r.Attempts > 1 {
		meta = append(meta, fmt.Sprintf("%d attempts", r.Attempts))
	}
	fmt.Fprintln(w, dimStyle.Render(strings.Join(meta, " · ")))
}

func renderImage(w io.Writer, r *protocol.ImageResponse) {
	fmt.Fprintln(w, okStyle.Render(r.ImageURL))
	if r.GenerationTime != nil {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("generated in %.2fs", *r.GenerationTime)))
	}
}

func renderStatus(w io.Writer, r *protocol.StatusResponse) {
	fmt.Fprintln(w, titleStyle.Render("Ollama")+" "+dimStyle.Render(r.Ollama.Host))
	fmt.Fprintf(w, "  running  %s\n", yesNo(r.Ollama.Running))
	fmt.Fprintf(w, "  process  %s\n", yesNo(r.Ollama.Process))

	fmt.Fprintln(w, titleStyle.Render("Models"))
	keys := make([]string, 0, len(r.Models))
	for k := range r.Models {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := r.Models[k].(type) {
		case bool:
			fmt.Fprintf(w, "  %-8s %s\n", k, yesNo(v))
		default:
			fmt.Fprintf(w, "  %-8s %v\n", k, v)
		}
	}

	if g := r.Gateway; g != nil {
		fmt.Fprintln(w, titleStyle.Render("Gateway"))
		fmt.Fprintf(w, "  uptime %s, %d requests, %d errors, %d retries, %.0fms avg\n",
			g.Uptime, g.Requests, g.Errors, g.Retries, g.AvgLatencyMs)
		if g.LogFailures > 0 {
			fmt.Fprintln(w, codeStyle.Render(fmt.Sprintf("  %d generation log writes failed", g.LogFailures)))
		}
	}
}

func renderHistory(w io.Writer, r *protocol.HistoryResponse) {
	if len(r.Items) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no generations yet"))
		return
	}
	for _, item := range r.Items {
		head := fmt.Sprintf("%s  %-5s  %s", item.CreatedAt.Local().Format("2006-01-02 15:04"), item.Type, item.Prompt)
		fmt.Fprintln(w, titleStyle.Render(head))
		if item.URL != "" {
			fmt.Fprintln(w, "  "+okStyle.Render(item.URL))
		}
		if item.Data != "" {
			fmt.Fprintln(w, "  "+truncate(item.Data, 120))
		}
	}
}

func renderError(w io.Writer, err error) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		fmt.Fprintln(w, errStyle.Render("error: ")+err.Error())
		return
	}

	fmt.Fprintln(w, errStyle.Render(apiErr.Body.Message)+" "+codeStyle.Render("["+apiErr.Body.ErrorCode+"]"))
	if len(apiErr.Body.Solutions) > 0 {
		fmt.Fprintln(w, dimStyle.Render("Suggestions:"))
		for _, s := range apiErr.Body.Solutions {
			fmt.Fprintln(w, "  - "+s)
		}
	}
	if apiErr.Body.Details != "" {
		fmt.Fprintln(w, dimStyle.Render(apiErr.Body.Details))
	}
}

func yesNo(ok bool) string {
	if ok {
		return okStyle.Render("yes")
	}
	return errStyle.Render("no")
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
