package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"dialog-agent/dialog"
	"dialog-agent/web"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliPlayerID is the player the CLI talks as unless --player is given. It is
// stable so persisted weariness carries over between runs.
var cliPlayerID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("dialog-agent-cli"))

var (
	askPartner string
	askPlayer  string
	askJSON    bool
)

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [text]",
		Short: "Say something to a dialogue partner",
		Long: `Reply to text as the given partner.

Without an argument every line read from stdin is answered in turn, so
weariness and table actions carry over between lines.

Examples:
  dialog-agent ask --partner blacksmith "Where can I buy a sword?"
  echo "Do you have work?" | dialog-agent ask --partner blacksmith --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().StringVarP(&askPartner, "partner", "p", "", "Partner to talk to")
	cmd.Flags().StringVar(&askPlayer, "player", "", "Player uuid (default: a fixed CLI player)")
	cmd.Flags().BoolVar(&askJSON, "json", false, "Print results as JSON")
	_ = cmd.MarkFlagRequired("partner")
	return cmd
}

func cliRelationship(player, partner string) (dialog.Relationship, error) {
	rel := dialog.Relationship{PlayerID: cliPlayerID, PartnerID: partner}
	if player != "" {
		id, err := uuid.Parse(player)
		if err != nil {
			return rel, fmt.Errorf("invalid --player: %w", err)
		}
		rel.PlayerID = id
	}
	return rel, rel.Validate()
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger := app.cfg, app.logger
	ctx := cmd.Context()

	rel, err := cliRelationship(askPlayer, askPartner)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		err = askOnce(ctx, rt.engine, rel, args[0], out)
	} else {
		err = askLines(ctx, rt.engine, rel, cmd.InOrStdin(), out)
	}
	if err != nil {
		return err
	}

	if rt.snapshots != nil {
		if _, err := web.NewSnapshotService(rt.engine, rt.snapshots, logger).SaveAll(ctx); err != nil {
			logger.Warn("Failed to save weariness", zap.Error(err))
		}
	}
	return nil
}

func askLines(ctx context.Context, engine *dialog.Engine, rel dialog.Relationship, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := askOnce(ctx, engine, rel, line, out); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func askOnce(ctx context.Context, engine *dialog.Engine, rel dialog.Relationship, text string, out io.Writer) error {
	results, err := engine.Reply(ctx, rel, text)
	if err != nil {
		return err
	}
	if askJSON {
		return json.NewEncoder(out).Encode(results)
	}
	for _, r := range results {
		fmt.Fprintln(out, formatResult(r))
	}
	return nil
}

func formatResult(r dialog.Result) string {
	var b strings.Builder
	switch {
	case r.Found:
		fmt.Fprintf(&b, "[%s/%s#%d] ", r.Table, r.Row, r.AnswerIndex)
	case r.Table != "":
		fmt.Fprintf(&b, "[%s] ", r.Table)
	default:
		b.WriteString("[-] ")
	}
	b.WriteString(r.Text)
	if r.Task != "" {
		fmt.Fprintf(&b, " (task: %s)", r.Task)
	}
	return b.String()
}
