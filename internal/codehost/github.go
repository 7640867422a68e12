package codehost

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/zulandar/ratchet/internal/ratchet"
	"golang.org/x/oauth2"
)

const defaultAPITimeout = 10 * time.Second

// GitHubClient implements StatusClient against the GitHub REST API.
type GitHubClient struct {
	gh      *github.Client
	timeout time.Duration
}

// GitHubOpts holds parameters for creating a GitHubClient.
type GitHubOpts struct {
	Token   string
	Timeout time.Duration
	// For testing: inject a pre-built HTTP client (e.g. pointing at a
	// httptest server) instead of the oauth2 transport.
	HTTPClient *http.Client
	BaseURL    string
}

// NewGitHub creates a GitHubClient.
func NewGitHub(opts GitHubOpts) (*GitHubClient, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		if opts.Token == "" {
			return nil, fmt.Errorf("codehost: github token is required")
		}
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(context.Background(), src)
	}

	gh := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(opts.BaseURL, opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("codehost: base url: %w", err)
		}
	}

	return &GitHubClient{gh: gh, timeout: timeout}, nil
}

// FetchPRSignals fetches PR state, check rollup, and review decision in one
// observation. Each underlying API call carries its own timeout; any
// failure surfaces as a fetch error and the caller skips the workspace for
// this cycle.
func (c *GitHubClient) FetchPRSignals(ctx context.Context, ref PRRef) (*PRSignals, error) {
	pr, err := c.getPR(ctx, ref)
	if err != nil {
		return nil, err
	}

	signals := &PRSignals{State: prStateOf(pr)}

	// Terminal PR states decide everything; skip the remaining calls.
	if signals.State == ratchet.PRMerged || signals.State == ratchet.PRClosed {
		signals.Observation = ratchet.ObsNotFetched
		return signals, nil
	}

	checks, err := c.getChecksForRef(ctx, ref, pr.GetHead().GetSHA())
	if err != nil {
		return nil, err
	}
	signals.Checks = checks
	signals.Observation = ratchet.RollupChecks(checks)
	signals.CIRunID = ratchet.FailingRunID(checks)

	review, err := c.getReviewDecision(ctx, ref)
	if err != nil {
		return nil, err
	}
	signals.Review = review

	return signals, nil
}

func (c *GitHubClient) getPR(ctx context.Context, ref PRRef) (*github.PullRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pr, _, err := c.gh.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, fmt.Errorf("codehost: get pr %s/%s#%d: %w", ref.Owner, ref.Repo, ref.Number, err)
	}
	return pr, nil
}

func (c *GitHubClient) getChecksForRef(ctx context.Context, ref PRRef, sha string) ([]ratchet.CheckResult, error) {
	if sha == "" {
		return nil, nil
	}

	var checks []ratchet.CheckResult
	opts := &github.ListCheckRunsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		ctxCall, cancel := context.WithTimeout(ctx, c.timeout)
		result, resp, err := c.gh.Checks.ListCheckRunsForRef(ctxCall, ref.Owner, ref.Repo, sha, opts)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("codehost: list check runs for %s/%s@%s: %w", ref.Owner, ref.Repo, sha, err)
		}
		for _, run := range result.CheckRuns {
			checks = append(checks, convertCheckRun(run))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return checks, nil
}

func (c *GitHubClient) getReviewDecision(ctx context.Context, ref PRRef) (ratchet.ReviewDecision, error) {
	var reviews []*github.PullRequestReview
	opts := &github.ListOptions{PerPage: 100}
	for {
		ctxCall, cancel := context.WithTimeout(ctx, c.timeout)
		page, resp, err := c.gh.PullRequests.ListReviews(ctxCall, ref.Owner, ref.Repo, ref.Number, opts)
		cancel()
		if err != nil {
			return ratchet.ReviewNone, fmt.Errorf("codehost: list reviews for %s/%s#%d: %w", ref.Owner, ref.Repo, ref.Number, err)
		}
		reviews = append(reviews, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return reviewDecisionFrom(reviews), nil
}

// prStateOf maps a GitHub PR to the ratchet PRState.
func prStateOf(pr *github.PullRequest) ratchet.PRState {
	switch {
	case pr.GetMerged():
		return ratchet.PRMerged
	case pr.GetState() == "closed":
		return ratchet.PRClosed
	case pr.GetDraft():
		return ratchet.PRDraft
	default:
		return ratchet.PROpen
	}
}

// convertCheckRun maps a GitHub check run to the core CheckResult type.
// GitHub's timed_out and action_required conclusions are failures in
// practice; unrecognized strings pass through uppercased so the rollup can
// bucket them conservatively.
func convertCheckRun(run *github.CheckRun) ratchet.CheckResult {
	status := ratchet.CheckStatus(strings.ToUpper(run.GetStatus()))

	var conclusion ratchet.CheckConclusion
	switch run.GetConclusion() {
	case "":
		conclusion = ratchet.ConclusionNone
	case "success":
		conclusion = ratchet.ConclusionSuccess
	case "failure", "timed_out", "action_required":
		conclusion = ratchet.ConclusionFailure
	case "neutral":
		conclusion = ratchet.ConclusionNeutral
	case "skipped":
		conclusion = ratchet.ConclusionSkipped
	case "cancelled":
		conclusion = ratchet.ConclusionCancelled
	default:
		conclusion = ratchet.CheckConclusion(strings.ToUpper(run.GetConclusion()))
	}

	return ratchet.CheckResult{
		Name:       run.GetName(),
		Status:     status,
		Conclusion: conclusion,
		RunID:      run.GetID(),
	}
}

// reviewDecisionFrom derives a single review decision from the review
// history: only each reviewer's latest APPROVED/CHANGES_REQUESTED state
// counts, and an outstanding CHANGES_REQUESTED blocks.
func reviewDecisionFrom(reviews []*github.PullRequestReview) ratchet.ReviewDecision {
	latest := make(map[string]string)
	for _, r := range reviews {
		state := r.GetState()
		switch state {
		case "APPROVED", "CHANGES_REQUESTED":
			latest[r.GetUser().GetLogin()] = state
		case "DISMISSED":
			delete(latest, r.GetUser().GetLogin())
		}
	}

	approved := false
	for _, state := range latest {
		if state == "CHANGES_REQUESTED" {
			return ratchet.ReviewChangesRequested
		}
		if state == "APPROVED" {
			approved = true
		}
	}
	if approved {
		return ratchet.ReviewApproved
	}
	return ratchet.ReviewNone
}
