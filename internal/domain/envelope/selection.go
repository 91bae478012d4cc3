package envelope

import "github.com/google/uuid"

// SendTarget addresses one signer in a partial send/remind command.
type SendTarget struct {
	SignerID uuid.UUID
	Message  string
}

// SendOptions narrows which signers a send/remind command reaches.
type SendOptions struct {
	Message   string
	SendToAll bool
	Signers   []SendTarget
}

// MessageFor resolves the invitation message for one signer: a non-empty
// per-target message wins over the command-level one. Nil options mean no
// message.
func (o *SendOptions) MessageFor(signerID uuid.UUID) string {
	if o == nil {
		return ""
	}
	for _, t := range o.Signers {
		if t.SignerID == signerID && t.Message != "" {
			return t.Message
		}
	}
	return o.Message
}

// SelectTargetSigners computes the signer subset a send command targets.
// Absent options and SendToAll both mean everyone; otherwise membership in
// options.Signers decides. Pure and total: never errors, empty in → empty out.
func SelectTargetSigners(signers []*Signer, opts *SendOptions) []*Signer {
	if opts == nil || opts.SendToAll {
		out := make([]*Signer, len(signers))
		copy(out, signers)
		return out
	}
	ids := make([]uuid.UUID, 0, len(opts.Signers))
	for _, t := range opts.Signers {
		ids = append(ids, t.SignerID)
	}
	return FilterSignersByIDs(signers, ids)
}

// FilterSignersByIDs is a set-intersection filter by signer identity.
// Duplicate ids collapse; ids with no match are silently ignored.
func FilterSignersByIDs(signers []*Signer, ids []uuid.UUID) []*Signer {
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := make([]*Signer, 0, len(wanted))
	for _, s := range signers {
		if _, ok := wanted[s.GetID()]; ok {
			out = append(out, s)
		}
	}
	return out
}
