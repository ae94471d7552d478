package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bryanwahyu/automaton-recon/internal/domain/ai"
)

// HeuristicModel names analyses produced without a language model.
const HeuristicModel = "heuristic"

// Heuristic implements ai.Client with fixed rules over host names. It is
// used when no OpenAI key is configured.
type Heuristic struct{}

func (Heuristic) Analyze(ctx context.Context, f ai.Findings) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := json.Marshal(AnalyzeFindings(f))
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(b), nil
}

type hostRule struct {
	re             *regexp.Regexp
	severity       string
	title          string
	recommendation string
}

// Label based rules. A host counts once per rule.
var hostRules = []hostRule{
	{regexp.MustCompile(`(?i)(^|[.-])(jenkins|gitlab|git|ci|argocd|grafana|kibana|prometheus|sonar)([.-]|\d|$)`), "high",
		"Build or monitoring tooling exposed", "Put CI and observability consoles behind SSO or a VPN and verify anonymous access is disabled."},
	{regexp.MustCompile(`(?i)(^|[.-])(admin|administrator|cpanel|phpmyadmin|manage|console|portal)([.-]|\d|$)`), "high",
		"Administrative interface hostname", "Restrict administrative hosts by network and require strong authentication."},
	{regexp.MustCompile(`(?i)(^|[.-])(db|mysql|postgres|mongo|redis|elastic|es)([.-]|\d|$)`), "high",
		"Datastore hostname resolvable", "Confirm datastores are not reachable from the internet; bind them to private networks."},
	{regexp.MustCompile(`(?i)(^|[.-])(dev|develop|staging|stage|stg|test|qa|uat|sandbox|preprod)([.-]|\d|$)`), "medium",
		"Non-production environment exposed", "Non-production hosts often run debug builds and weaker controls; restrict or decommission them."},
	{regexp.MustCompile(`(?i)(^|[.-])(vpn|remote|citrix|rdp|owa|sso|auth|login)([.-]|\d|$)`), "medium",
		"Remote access or login endpoint", "Enforce MFA and monitor these endpoints for credential stuffing."},
	{regexp.MustCompile(`(?i)(^|[.-])(backup|bak|old|legacy|archive)([.-]|\d|$)`), "medium",
		"Legacy or backup host", "Legacy hosts are frequently unpatched; inventory and retire them."},
	{regexp.MustCompile(`(?i)(^|[.-])(api|graphql|internal|intranet)([.-]|\d|$)`), "low",
		"API or internal service hostname", "Review authentication on API hosts and keep internal services out of public DNS."},
}

// AnalyzeFindings builds a report from host names and emails alone.
func AnalyzeFindings(f ai.Findings) Report {
	out := Report{Domain: f.Domain, Findings: []Finding{}}

	hosts := collectHosts(f.Categories)
	for _, rule := range hostRules {
		var matched []string
		for _, h := range hosts {
			if rule.re.MatchString(h) {
				matched = append(matched, h)
			}
		}
		if len(matched) == 0 {
			continue
		}
		out.add(Finding{
			Title:          rule.title,
			Severity:       rule.severity,
			Summary:        fmt.Sprintf("%d host(s) match, e.g. %s", len(matched), matched[0]),
			Assets:         capList(matched, 20),
			Recommendation: rule.recommendation,
		})
	}

	if emails := f.Categories["emails"]; len(emails) > 0 {
		out.add(Finding{
			Title:          "Email addresses harvested",
			Severity:       "low",
			Summary:        fmt.Sprintf("%d address(es) are publicly discoverable and usable for phishing or password spraying.", len(emails)),
			Assets:         capList(emails, 20),
			Recommendation: "Run phishing awareness for listed staff and enforce MFA on mail accounts.",
		})
	}

	if len(hosts) > 50 {
		out.add(Finding{
			Title:          "Large external footprint",
			Severity:       "info",
			Summary:        fmt.Sprintf("%d distinct hosts were enumerated.", len(hosts)),
			Recommendation: "Maintain an asset inventory and prune unused DNS records.",
		})
	}

	if len(out.Findings) == 0 {
		out.add(Finding{
			Title:          "No notable exposure",
			Severity:       "info",
			Summary:        "No host names matched known sensitive patterns.",
			Recommendation: "Repeat the scan periodically; passive sources change over time.",
		})
	}

	switch {
	case out.Counts.Critical+out.Counts.High > 0:
		out.Advice = "Prioritise the administrative, tooling and datastore hosts: confirm they require authentication and are not reachable without a VPN."
	case out.Counts.Medium > 0:
		out.Advice = "Review non-production and remote access hosts, then decommission what is no longer used."
	default:
		out.Advice = "Footprint looks routine. Keep DNS records tidy and rescan regularly."
	}
	return out
}

// collectHosts gathers unique lowercase names from host-like categories.
func collectHosts(cats map[string][]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, key := range []string{"subdomains", "hosts", "interesting_urls"} {
		for _, v := range cats[key] {
			h := strings.ToLower(strings.TrimSpace(v))
			// theHarvester reports hosts as "name:ip"
			if i := strings.IndexByte(h, ':'); i > 0 && !strings.Contains(h, "://") {
				h = h[:i]
			}
			if h == "" || seen[h] {
				continue
			}
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}

func capList(v []string, n int) []string {
	if len(v) > n {
		v = v[:n]
	}
	return append([]string(nil), v...)
}
