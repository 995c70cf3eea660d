package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-tutor/internal/logging"
	"github.com/danielpatrickdp/adaptive-tutor/internal/store"
)

var (
	inspectLast    int
	inspectSession string
	inspectJSON    bool
	inspectRewind  string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List estimator versions, sessions and recent outcomes",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent rows")
	inspectCmd.Flags().StringVar(&inspectSession, "session", "", "filter outcomes to one session")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of tables")
	inspectCmd.Flags().StringVar(&inspectRewind, "rollback", "", "make this estimator version active and exit")
}

// #region inspect
type versionRow struct {
	VersionID string `json:"version_id"`
	ParentID  string `json:"parent_id,omitempty"`
	Shape     string `json:"shape"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	Metrics   string `json:"metrics,omitempty"`
}

type sessionRow struct {
	SessionID string  `json:"session_id"`
	Total     int     `json:"total_questions"`
	Accuracy  float64 `json:"accuracy"`
	Mastery   int     `json:"mastery_level"`
	UpdatedAt string  `json:"updated_at"`
}

type inspectOutput struct {
	Versions []versionRow           `json:"versions"`
	Sessions []sessionRow           `json:"sessions"`
	Outcomes []logging.OutcomeEntry `json:"outcomes"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	if inspectRewind != "" {
		if err := st.RollbackEstimator(inspectRewind); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active estimator is now %s\n", inspectRewind)
		return nil
	}

	out, err := collect(st, inspectLast, inspectSession)
	if err != nil {
		return err
	}
	if inspectJSON {
		return printJSON(cmd.OutOrStdout(), out)
	}
	printTables(cmd.OutOrStdout(), out)
	return nil
}

func collect(st *store.Store, last int, sessionID string) (inspectOutput, error) {
	var out inspectOutput
	active := ""
	if rec, err := st.ActiveEstimator(); err == nil {
		active = rec.VersionID
	}

	versions, err := st.ListEstimatorVersions(last)
	if err != nil {
		return out, err
	}
	for _, v := range versions {
		out.Versions = append(out.Versions, versionRow{
			VersionID: v.VersionID,
			ParentID:  v.ParentID,
			Shape:     fmt.Sprintf("%dx%dx%d", v.Shape.Inputs, v.Shape.Hidden, v.Shape.Outputs),
			Active:    v.VersionID == active,
			CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
			Metrics:   v.MetricsJSON,
		})
	}

	sessions, err := st.ListSessions(last)
	if err != nil {
		return out, err
	}
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, sessionRow{
			SessionID: s.SessionID,
			Total:     s.State.TotalQuestions,
			Accuracy:  s.State.Accuracy(),
			Mastery:   s.State.MasteryLevel,
			UpdatedAt: s.UpdatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	outcomes, err := logging.ListOutcomes(st.DB(), sessionID, 0)
	if err != nil {
		return out, err
	}
	if last > 0 && len(outcomes) > last {
		outcomes = outcomes[len(outcomes)-last:]
	}
	out.Outcomes = outcomes
	return out, nil
}

// #endregion inspect

// #region output
func printTables(w io.Writer, out inspectOutput) {
	fmt.Fprintf(w, "%-2s %-10s  %-10s  %-9s  %s\n", "", "Version", "Parent", "Shape", "Created")
	for _, v := range out.Versions {
		mark := ""
		if v.Active {
			mark = "*"
		}
		fmt.Fprintf(w, "%-2s %-10s  %-10s  %-9s  %s\n", mark, shortID(v.VersionID), shortID(v.ParentID), v.Shape, v.CreatedAt)
	}
	if len(out.Versions) == 0 {
		fmt.Fprintln(w, "   (no estimator versions)")
	}

	fmt.Fprintf(w, "\n%-10s  %5s  %8s  %7s  %s\n", "Session", "Total", "Accuracy", "Mastery", "Updated")
	for _, s := range out.Sessions {
		fmt.Fprintf(w, "%-10s  %5d  %7.0f%%  %7d  %s\n", shortID(s.SessionID), s.Total, 100*s.Accuracy, s.Mastery, s.UpdatedAt)
	}

	fmt.Fprintf(w, "\n%-10s  %-12s  %-7s  %8s  %7s  %-11s  %s\n",
		"Session", "Topic", "Correct", "Time ms", "Reward", "Decision", "Reason")
	for _, o := range out.Outcomes {
		fmt.Fprintf(w, "%-10s  %-12s  %-7v  %8.0f  %7.3f  %-11s  %s\n",
			shortID(o.SessionID), o.Topic, o.IsCorrect, o.ResponseTimeMs, o.Reward, o.Decision, o.Reason)
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
