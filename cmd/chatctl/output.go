package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-yaml"

	"github.com/mkrupp/voicechat/internal/domain"
)

// Output formats.
const (
	formatYAML = "yaml"
	formatJSON = "json"
)

var errUnknownFormat = errors.New("unknown output format")

func checkFormat(format string) error {
	switch format {
	case formatYAML, formatJSON:
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}

// notice is printed for calls that only confirm success.
type notice struct {
	Message string `json:"message" yaml:"message"`
}

// conversation is the output of the messages command.
type conversation struct {
	Peer     domain.User      `json:"peer"     yaml:"peer"`
	Messages []domain.Message `json:"messages" yaml:"messages"`
}

func (a *app) print(v any) error {
	data, err := encode(a.format, v)
	if err != nil {
		return err
	}

	if _, err := a.out.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

func encode(format string, v any) ([]byte, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}

		return append(data, '\n'), nil
	case formatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}

		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}

func describeDownload(path string, download *domain.Download) string {
	contentType := download.ContentType
	if contentType == "" {
		contentType = "unknown type"
	}

	return fmt.Sprintf("saved %s (%s, %s)", path, humanize.IBytes(uint64(download.Size())), contentType)
}

// printStats writes the client attempt counters, one line per label set.
func (a *app) printStats(w io.Writer) error {
	families, err := a.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var lines []string

	for _, family := range families {
		if !strings.HasSuffix(family.GetName(), "attempts_total") {
			continue
		}

		for _, metric := range family.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, label := range metric.GetLabel() {
				labels = append(labels, label.GetName()+"="+label.GetValue())
			}

			lines = append(lines, fmt.Sprintf("%s %s", strings.Join(labels, " "),
				humanize.Comma(int64(metric.GetCounter().GetValue()))))
		}
	}

	sort.Strings(lines)

	return writeLines(w, lines)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	return nil
}
