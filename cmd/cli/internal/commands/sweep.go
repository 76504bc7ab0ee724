package commands

import (
	"context"
	"fmt"
)

// SweepCmd expires overdue pending invitations once. No principal is needed.
type SweepCmd struct{}

func (c *SweepCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := openSession(ctx, globals)
	if err != nil {
		return err
	}
	defer s.Close()

	count, err := s.svc.RevokeExpiredInvitationSet(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(globals.out(), "Expired %d invitation(s)\n", count)
	return nil
}
