package repository

// Match pairs an existing child with the incoming entry that carries its id.
type Match[E, P any] struct {
	Existing E
	Incoming P
}

// Reconciliation is the replace-children-by-id diff of an incoming child list
// against the stored one.
type Reconciliation[E, P any] struct {
	Matched []Match[E, P]
	Created []P
	Orphans []E
}

// ReconcileByID matches incoming entries to existing children by key.
// Entries without a key, or whose key matches no existing child, are to be
// created; existing children no entry refers to are orphans. Incoming keys
// are expected to be unique; a repeated key is matched once and then created.
func ReconcileByID[E, P any, K comparable](
	existing []E,
	incoming []P,
	existingKey func(E) K,
	incomingKey func(P) (K, bool),
) Reconciliation[E, P] {
	byKey := make(map[K]E, len(existing))
	for _, e := range existing {
		byKey[existingKey(e)] = e
	}

	var out Reconciliation[E, P]
	seen := make(map[K]struct{}, len(incoming))
	for _, p := range incoming {
		k, ok := incomingKey(p)
		if ok {
			if e, found := byKey[k]; found {
				if _, dup := seen[k]; !dup {
					seen[k] = struct{}{}
					out.Matched = append(out.Matched, Match[E, P]{Existing: e, Incoming: p})
					continue
				}
			}
		}
		out.Created = append(out.Created, p)
	}

	for _, e := range existing {
		if _, ok := seen[existingKey(e)]; !ok {
			out.Orphans = append(out.Orphans, e)
		}
	}

	return out
}
