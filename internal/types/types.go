package types

// AssignmentStatus tracks a message through the assignment pipeline.
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusAssigned   AssignmentStatus = "assigned"
	AssignmentStatusFailed     AssignmentStatus = "failed"
)

// Message represents one ingested chat message.
type Message struct {
	GUID             string           `json:"guid"`
	CreatedAt        int64            `json:"created_at"` // unix millis
	Author           string           `json:"author"`
	Content          string           `json:"content"`
	ThreadGUID       *string          `json:"thread_guid,omitempty"`
	AssignmentStatus AssignmentStatus `json:"assignment_status"`
	AssignmentNote   *string          `json:"assignment_note,omitempty"`
}

// ThreadState represents thread lifecycle state.
type ThreadState string

const (
	ThreadStateActive     ThreadState = "active"
	ThreadStateCooling    ThreadState = "cooling"
	ThreadStateArchived   ThreadState = "archived"
	ThreadStateSuperseded ThreadState = "superseded"
)

// LiveThreadStates are the states lifecycle decay and merge scanning act on.
var LiveThreadStates = []ThreadState{ThreadStateActive, ThreadStateCooling}

// Thread represents one organized discussion.
type Thread struct {
	GUID                  string      `json:"guid"`
	Title                 string      `json:"title"`
	State                 ThreadState `json:"state"`
	CreatedAt             int64       `json:"created_at"`
	UpdatedAt             int64       `json:"updated_at"`
	LastMessageAt         *int64      `json:"last_message_at,omitempty"`
	ArchivedAt            *int64      `json:"archived_at,omitempty"`
	SupersededAt          *int64      `json:"superseded_at,omitempty"`
	RevivesThreadGUID     *string     `json:"revives_thread_guid,omitempty"`
	ContinuedInThreadGUID *string     `json:"continued_in_thread_guid,omitempty"`
	MergedIntoThreadGUID  *string     `json:"merged_into_thread_guid,omitempty"`
}

// IsLive reports whether a thread is still subject to decay and merging.
func (t Thread) IsLive() bool {
	return t.State == ThreadStateActive || t.State == ThreadStateCooling
}

// Candidate is a thread offered to a decision step, enriched with a
// bounded excerpt of its most recent messages.
type Candidate struct {
	Thread  Thread   `json:"thread"`
	Excerpt []string `json:"excerpt"`
}

// ExcerptText joins title and excerpt lines for scoring and prompting.
func (c Candidate) ExcerptText() string {
	text := c.Thread.Title
	for _, line := range c.Excerpt {
		text += "\n" + line
	}
	return text
}

// AssignmentAction is the destination kind an assignment decision picks.
type AssignmentAction string

const (
	AssignmentActionAssign AssignmentAction = "assign"
	AssignmentActionCreate AssignmentAction = "create"
)

// AssignmentDecision is the outcome of deciding a message's destination.
type AssignmentDecision struct {
	Action     AssignmentAction `json:"action"`
	ThreadGUID string           `json:"thread_guid,omitempty"`
	Title      string           `json:"title,omitempty"`
	Confidence float64          `json:"confidence"`
	Reason     string           `json:"reason"`
}

// RevivalDecision names an archived thread a new thread continues, if any.
type RevivalDecision struct {
	ArchivedThreadGUID string  `json:"archived_thread_guid,omitempty"`
	Confidence         float64 `json:"confidence"`
}

// MergeDecision is the outcome of judging two live threads as duplicates.
type MergeDecision struct {
	ShouldMerge bool    `json:"should_merge"`
	SourceGUID  string  `json:"source_guid"`
	TargetGUID  string  `json:"target_guid"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}

// ThreadQueryOptions controls thread listing.
type ThreadQueryOptions struct {
	States []ThreadState
	Limit  int
}

// StatusCounts summarizes store contents for the status command.
type StatusCounts struct {
	Messages map[AssignmentStatus]int64 `json:"messages"`
	Threads  map[ThreadState]int64      `json:"threads"`
}
