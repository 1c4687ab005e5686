package kraft

// Endpoint is one advertised network address for a replica, at a given
// listener name (e.g. "CONTROLLER").
type Endpoint struct {
	Listener string
	Host     string
	Port     int32
}

// VoterNode is one member of a VoterSet: its identity and its advertised
// endpoints. This mirrors what the membership module (an external
// collaborator per spec §6) supplies when decoding Voters control records.
type VoterNode struct {
	VoterKey  ReplicaKey
	Endpoints []Endpoint
}

// VoterSet is a versioned snapshot of cluster membership, keyed by replica
// id. It is supplied by the membership module; LeaderState only ever reads
// it to reconcile voterStates/observerStates (§4.1).
type VoterSet struct {
	nodes map[int32]VoterNode
}

// NewVoterSet builds a VoterSet from nodes, keyed by VoterKey.ID. Later
// entries for a duplicate id overwrite earlier ones.
func NewVoterSet(nodes ...VoterNode) VoterSet {
	vs := VoterSet{nodes: make(map[int32]VoterNode, len(nodes))}
	for _, n := range nodes {
		vs.nodes[n.VoterKey.ID] = n
	}
	return vs
}

// IDs returns the set of node ids in this voter set, in no particular order.
func (vs VoterSet) IDs() []int32 {
	ids := make([]int32, 0, len(vs.nodes))
	for id := range vs.nodes {
		ids = append(ids, id)
	}
	return ids
}

// Size returns the number of voters in this set.
func (vs VoterSet) Size() int { return len(vs.nodes) }

// Contains reports whether id is a voter in this set.
func (vs VoterSet) Contains(id int32) bool {
	_, ok := vs.nodes[id]
	return ok
}

// Node returns the VoterNode for id, if present.
func (vs VoterSet) Node(id int32) (VoterNode, bool) {
	n, ok := vs.nodes[id]
	return n, ok
}

// VoterKey returns the full ReplicaKey on record for id, if present.
func (vs VoterSet) VoterKey(id int32) (ReplicaKey, bool) {
	n, ok := vs.nodes[id]
	return n.VoterKey, ok
}
