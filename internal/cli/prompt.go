package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sdejongh/syncverdict/pkg/models"
)

// linePrompter asks on out and reads one answer per line from in
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{in: bufio.NewReader(in), out: out}
}

// Ask implements sync.Prompter
func (p *linePrompter) Ask(ctx context.Context, op models.SyncOperation) (models.SyncAction, error) {
	c := op.Comparison

	fmt.Fprintf(p.out, "\n%s needs a decision (%s)\n", c.RelativePath, c.Status)
	fmt.Fprintf(p.out, "  local:  %s\n", describeSide(c.Local))
	fmt.Fprintf(p.out, "  remote: %s\n", describeSide(c.Remote))

	for {
		if err := ctx.Err(); err != nil {
			return models.ActionSkip, err
		}

		fmt.Fprint(p.out, "Keep [l]ocal (upload), keep [r]emote (download) or [s]kip? ")
		line, err := p.in.ReadString('\n')
		if err != nil && line == "" {
			return models.ActionSkip, fmt.Errorf("failed to read answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "l", "local", "u", "upload":
			if c.Local != nil {
				return models.ActionUpload, nil
			}
		case "r", "remote", "d", "download":
			if c.Remote != nil {
				return models.ActionDownload, nil
			}
		case "s", "skip", "":
			return models.ActionSkip, nil
		}

		fmt.Fprintln(p.out, "Please answer l, r or s.")
	}
}

func describeSide(info *models.FileInfo) string {
	if info == nil {
		return "missing"
	}
	modified := "unknown"
	if info.HasModTime() {
		modified = info.ModTime.Local().Format(time.DateTime)
	}
	return fmt.Sprintf("%d bytes, modified %s", info.Size, modified)
}
