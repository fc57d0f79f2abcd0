package observerproto

// Version is the observer protocol version (separate from the command protocol).
const Version = "0.2"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeGridState = "GRID_STATE"
)

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// EveryTicks throttles GRID_STATE messages. Zero keeps the server default.
	EveryTicks int `json:"every_ticks,omitempty"`
	// Area limits machines to a rectangle [x, y, w, h]. Empty means everything.
	Area  []int `json:"area,omitempty"`
	Links bool  `json:"links,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	RunID           string      `json:"run_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	MachineTypes    []string    `json:"machine_types"`
	CatalogDigest   string      `json:"catalog_digest"`
}

type WorldParams struct {
	TickRateHz int     `json:"tick_rate_hz"`
	TickDT     float64 `json:"tick_dt"`
	TileSize   float64 `json:"tile_size"`
}

// Server -> Client.
type GridStateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Digest          string `json:"digest,omitempty"`

	Machines []MachineState `json:"machines"`
	Links    []LinkState    `json:"links,omitempty"`
	Loose    []ItemState    `json:"loose,omitempty"`
	Audits   []AuditEntry   `json:"audits,omitempty"`
}

type MachineState struct {
	ID       uint64 `json:"id"`
	Type     string `json:"type"`
	Kind     string `json:"kind"`
	Origin   [2]int `json:"origin"`
	Size     [2]int `json:"size"`
	Rotation int    `json:"rotation"`

	// Belts only.
	Shape   string   `json:"shape,omitempty"`
	Inputs  []string `json:"inputs,omitempty"`
	Outputs []string `json:"outputs,omitempty"`

	Letter string      `json:"letter,omitempty"`
	Items  []ItemState `json:"items,omitempty"`
}

// LinkState is one output->input link, by tile and facing of the output.
type LinkState struct {
	From [2]int `json:"from"`
	To   [2]int `json:"to"`
	Dir  string `json:"dir"`
}

type ItemState struct {
	Formula string     `json:"formula"`
	Theorem bool       `json:"theorem,omitempty"`
	Pos     [2]float64 `json:"pos"`
}

type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	Actor  string `json:"actor"`
	Action string `json:"action"`
	Pos    [2]int `json:"pos"`
	Type   string `json:"type,omitempty"`
	Reason string `json:"reason,omitempty"`
}
