package domain

import (
	"strings"
	"time"
)

// Limits enforced by the engine across a whole session.
const (
	MaxBodyQuestions   = 3
	MaxBodyEnquiries   = 2
	RepeatWindowTurns  = 5
	ProblemAskCooldown = 6
)

// Completion holds the named criteria that gate substate advancement.
// Criteria are monotonic: the setters below only ever flip false -> true.
type Completion struct {
	GoalStated           bool `json:"goal_stated"`
	VisionAccepted       bool `json:"vision_accepted"`
	ProblemIdentified    bool `json:"problem_identified"`
	BodyAwarenessPresent bool `json:"body_awareness_present"`
	PresentMomentFocus   bool `json:"present_moment_focus"`
	PatternUnderstood    bool `json:"pattern_understood"`
	ReadyForNextStage    bool `json:"ready_for_next_stage"`

	// Free-text capture of what satisfied a criterion.
	GoalContent      string `json:"goal_content,omitempty"`
	ProblemContent   string `json:"problem_content,omitempty"`
	BodyLocation     string `json:"body_location,omitempty"`
	SensationQuality string `json:"sensation_quality,omitempty"`
}

// MarkGoalStated records the goal criterion and keeps the first stated goal text.
func (c *Completion) MarkGoalStated(content string) {
	if !c.GoalStated {
		c.GoalStated = true
		c.GoalContent = content
	}
}

// MarkProblemIdentified records the problem criterion with its evidence text.
func (c *Completion) MarkProblemIdentified(content string) {
	if !c.ProblemIdentified {
		c.ProblemIdentified = true
		c.ProblemContent = content
	}
}

// Exchange is one recorded turn of the conversation.
type Exchange struct {
	Turn     int          `json:"turn"`
	Input    string       `json:"input"`
	Output   string       `json:"output"`
	Decision DecisionType `json:"decision"`
	Substate Substate     `json:"substate"`
	At       time.Time    `json:"at"`
}

// CheckpointState tracks the nested relaxation sub-sequence.
type CheckpointState struct {
	Step                  int  `json:"step"` // 1-based current step
	TotalSteps            int  `json:"total_steps"`
	CalmSteps             int  `json:"calm_steps"`
	Retries               int  `json:"retries"`
	ResistanceEncountered bool `json:"resistance_encountered"`
	PhysiologicalSeen     bool `json:"physiological_seen"`
	Completed             bool `json:"completed"`
}

// DownRegulated reports whether the sequence produced observed down-regulation:
// at least two steps answered calm and at least one physiological phrase seen.
func (c *CheckpointState) DownRegulated() bool {
	return c.CalmSteps >= 2 && c.PhysiologicalSeen
}

// SessionState is the full record of one conversation. It is owned exclusively
// by the navigation engine; all mutation funnels through a single Decide call
// per turn.
type SessionState struct {
	SessionID string   `json:"session_id"`
	Stage     Stage    `json:"stage"`
	Substate  Substate `json:"substate"`

	Completion Completion `json:"completion"`

	BodyQuestionsAsked int  `json:"body_questions_asked"`
	BodyEnquiryCycles  int  `json:"body_enquiry_cycles"`
	AnythingElseAsked  int  `json:"anything_else_asked"`
	HowDoYouKnowAsked  bool `json:"how_do_you_know_asked"`

	LastAnswerKind AnswerKind `json:"last_answer_kind"`

	// AskedQuestions maps normalized question text to the turn it was last
	// asked on, used to suppress verbatim repetition.
	AskedQuestions map[string]int `json:"asked_questions"`

	// CoveredStressors are stressor/emotion keywords already explored, used to
	// detect genuinely new disclosures during readiness assessment.
	CoveredStressors map[string]bool `json:"covered_stressors"`

	History []Exchange `json:"history"`

	Checkpoint *CheckpointState `json:"checkpoint,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a fresh session at the initial substate with all
// criteria false.
func NewSession(id string) *SessionState {
	now := time.Now()
	return &SessionState{
		SessionID:        id,
		Stage:            StageCoaching,
		Substate:         SubstateGoalAndVision,
		LastAnswerKind:   AnswerGeneral,
		AskedQuestions:   make(map[string]int),
		CoveredStressors: make(map[string]bool),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Turn is the 1-based number of the turn currently being processed.
func (s *SessionState) Turn() int {
	return len(s.History) + 1
}

// RecentExchanges returns the last n exchanges, oldest first.
func (s *SessionState) RecentExchanges(n int) []Exchange {
	if n >= len(s.History) {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// RecordExchange appends the turn to the history. History is append-only.
func (s *SessionState) RecordExchange(input, output string, decision DecisionType) {
	s.History = append(s.History, Exchange{
		Turn:     s.Turn(),
		Input:    input,
		Output:   output,
		Decision: decision,
		Substate: s.Substate,
		At:       time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// DecisionAskedWithin reports whether a decision of the given type was issued
// within the last window turns.
func (s *SessionState) DecisionAskedWithin(d DecisionType, window int) bool {
	for i := len(s.History) - 1; i >= 0 && i >= len(s.History)-window; i-- {
		if s.History[i].Decision == d {
			return true
		}
	}
	return false
}

// DecisionCount returns how many turns issued the given decision type.
func (s *SessionState) DecisionCount(d DecisionType) int {
	n := 0
	for _, ex := range s.History {
		if ex.Decision == d {
			n++
		}
	}
	return n
}

// LastExchange returns the most recent exchange, or nil for a fresh session.
func (s *SessionState) LastExchange() *Exchange {
	if len(s.History) == 0 {
		return nil
	}
	return &s.History[len(s.History)-1]
}

// ReenterBodyEnquiry moves an assessment-stage session back into body
// exploration for one bounded second cycle. This is the only sanctioned
// backward substate move.
func (s *SessionState) ReenterBodyEnquiry() bool {
	if s.Substate != SubstateReadinessAssessment || s.BodyEnquiryCycles >= MaxBodyEnquiries {
		return false
	}
	s.BodyEnquiryCycles++
	s.Substate = SubstateProblemAndBody
	s.UpdatedAt = time.Now()
	return true
}

// RecordQuestion remembers a normalized question as asked on the current turn.
func (s *SessionState) RecordQuestion(normalized string) {
	if normalized == "" {
		return
	}
	if s.AskedQuestions == nil {
		s.AskedQuestions = make(map[string]int)
	}
	s.AskedQuestions[normalized] = s.Turn()
}

// QuestionAskedWithin reports whether the normalized question was asked within
// the last window turns.
func (s *SessionState) QuestionAskedWithin(normalized string, window int) bool {
	turn, ok := s.AskedQuestions[normalized]
	if !ok {
		return false
	}
	return s.Turn()-turn <= window
}

// AdvanceTo moves the substate forward. Backward moves are ignored so the
// visited sequence stays a subsequence of the canonical order.
func (s *SessionState) AdvanceTo(sub Substate) {
	if sub.Index() <= s.Substate.Index() {
		return
	}
	s.Substate = sub
	s.Stage = StageFor(sub)
	s.UpdatedAt = time.Now()
}

// CoverStressor marks a stressor/emotion keyword as explored.
func (s *SessionState) CoverStressor(word string) {
	if s.CoveredStressors == nil {
		s.CoveredStressors = make(map[string]bool)
	}
	s.CoveredStressors[strings.ToLower(word)] = true
}

// StressorCovered reports whether a stressor keyword was already explored.
func (s *SessionState) StressorCovered(word string) bool {
	return s.CoveredStressors[strings.ToLower(word)]
}

// CriteriaMetFor reports whether all criteria required to leave sub are true.
func (s *SessionState) CriteriaMetFor(sub Substate) bool {
	c := s.Completion
	switch sub {
	case SubstateGoalAndVision:
		return c.GoalStated && c.VisionAccepted
	case SubstatePsychoEducation:
		return c.PatternUnderstood
	case SubstateProblemAndBody:
		return c.ProblemIdentified && c.BodyAwarenessPresent
	case SubstateReadinessAssessment:
		return c.ReadyForNextStage
	default:
		return true
	}
}
