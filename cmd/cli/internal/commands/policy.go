package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/policy"
)

// PolicyCmd groups permissions policy commands.
type PolicyCmd struct {
	Set   PolicySetCmd   `cmd:"" help:"Replace an organization's permissions policy"`
	Check PolicyCheckCmd `cmd:"" help:"Validate a policy document without storing it"`
}

// loadPolicyDocument reads a policy file as YAML, which also accepts JSON,
// and returns it as a JSON document.
func loadPolicyDocument(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("policy file %s is empty", path)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("policy file %s is not representable as JSON: %w", path, err)
	}

	return raw, nil
}

type PolicySetCmd struct {
	OrgID string `arg:"" help:"organization ID"`
	File  string `help:"policy document (YAML or JSON)" required:"" type:"existingfile"`
}

func (c *PolicySetCmd) Run(ctx context.Context, globals *Globals) error {
	orgID, err := parseID("organization id", c.OrgID)
	if err != nil {
		return err
	}

	doc, err := loadPolicyDocument(c.File)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		org, err := s.svc.UpdateOrganizationPolicy(ctx, principal, orgID, doc)
		if err != nil {
			return fmt.Errorf("failed to update policy: %w", err)
		}

		printOrganization(globals.out(), org)
		return nil
	})
}

type PolicyCheckCmd struct {
	File string `arg:"" help:"policy document (YAML or JSON)" type:"existingfile"`
}

func (c *PolicyCheckCmd) Run(ctx context.Context, globals *Globals) error {
	raw, err := loadPolicyDocument(c.File)
	if err != nil {
		return err
	}

	doc, err := policy.Parse(raw)
	if err != nil {
		return err
	}

	w := globals.out()
	fmt.Fprintf(w, "Policy version %v is valid\n", doc.Version)
	for _, action := range policy.Actions {
		level, ok := doc.Requirement(action)
		switch {
		case !ok:
			fmt.Fprintf(w, "  %-30s denied\n", action)
		case level == models.PermissionLevelNone:
			fmt.Fprintf(w, "  %-30s open\n", action)
		default:
			fmt.Fprintf(w, "  %-30s level >= %d\n", action, level)
		}
	}

	return nil
}
