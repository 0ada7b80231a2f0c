package risk

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/standardbeagle/chaoslens/internal/debug"
)

// ChurnProvider supplies the externally-sourced churn term of combined_risk
// (spec §4.6 names the VCS-history adapter as outside this core's scope).
type ChurnProvider interface {
	Churn(ctx context.Context, path string) (float64, error)
}

// ZeroChurnProvider is the default: churn is always 0, matching spec §4.6's
// stated default for deployments with no VCS integration configured.
type ZeroChurnProvider struct{}

// Churn implements ChurnProvider.
func (ZeroChurnProvider) Churn(ctx context.Context, path string) (float64, error) {
	return 0, nil
}

// GitChurnProvider derives churn from commit frequency: the number of
// commits touching a path within a trailing window, normalized against a
// cap so that any file committed at or above the cap rate reads as
// maximally churny.
type GitChurnProvider struct {
	RepoRoot string
	Since    time.Duration
	Cap      int
}

// NewGitChurnProvider constructs a provider rooted at repoRoot, looking back
// 90 days and capping at 20 commits.
func NewGitChurnProvider(repoRoot string) *GitChurnProvider {
	return &GitChurnProvider{RepoRoot: repoRoot, Since: 90 * 24 * time.Hour, Cap: 20}
}

// Churn implements ChurnProvider by shelling out to `git log --since`.
func (g *GitChurnProvider) Churn(ctx context.Context, path string) (float64, error) {
	since := time.Now().Add(-g.Since).Format("2006-01-02")
	cmd := exec.CommandContext(ctx, "git", "log", "--since="+since, "--pretty=format:%H", "--", path)
	cmd.Dir = g.RepoRoot

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		debug.Log("RISK", "git log failed for %s: %v", path, err)
		return 0, nil
	}

	commits := 0
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			commits++
		}
	}

	if g.Cap <= 0 {
		return 0, nil
	}
	ratio := float64(commits) / float64(g.Cap)
	if ratio > 1 {
		ratio = 1
	}
	return ratio, nil
}
