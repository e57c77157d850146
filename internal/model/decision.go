package model

// GroupKind tells how the members of a DuplicateGroup were found equivalent.
type GroupKind string

const (
	GroupByHash   GroupKind = "hash_md5"
	GroupByFormat GroupKind = "filename"
)

// DuplicateGroup is a set of assets considered equivalent. Members keep
// discovery order.
type DuplicateGroup struct {
	Kind     GroupKind `json:"kind"`
	GroupKey string    `json:"groupKey"`
	Members  []*Asset  `json:"members"`
}

// RemovalReason explains why a member of a group may be removed.
type RemovalReason string

const (
	ReasonSupersededByPreferredFormat RemovalReason = "superseded-by-preferred-format"
	ReasonUnusedDuplicate             RemovalReason = "unused-duplicate"
)

// DecisionMember is an asset inside a decision together with its usage count.
type DecisionMember struct {
	*Asset
	UsageCount int           `json:"usageCount"`
	Reason     RemovalReason `json:"reason,omitempty"`
}

// DeletionDecision is the result of applying the deletion policy to a group.
type DeletionDecision struct {
	GroupKey  string           `json:"groupKey"`
	Kind      GroupKind        `json:"kind"`
	PrimaryID int64            `json:"primaryId"`
	Keep      []DecisionMember `json:"keep"`
	Remove    []DecisionMember `json:"remove"`
}

// RemovedIDs returns the ids marked for removal.
func (d *DeletionDecision) RemovedIDs() []int64 {
	ids := make([]int64, 0, len(d.Remove))
	for _, m := range d.Remove {
		ids = append(ids, m.ID)
	}
	return ids
}

// KeptIDs returns the ids that must survive.
func (d *DeletionDecision) KeptIDs() []int64 {
	ids := make([]int64, 0, len(d.Keep))
	for _, m := range d.Keep {
		ids = append(ids, m.ID)
	}
	return ids
}
