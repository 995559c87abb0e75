package agent

// Role identifies an agent specialization. Adding a role means adding a
// value and a prompt here; the orchestrator never changes.
type Role string

const (
	// RoleAnalyst breaks problems down and reasons about requirements.
	RoleAnalyst Role = "analyst"
	// RoleCoder produces implementation-oriented answers.
	RoleCoder Role = "coder"
	// RoleReviewer critiques and verifies proposed solutions.
	RoleReviewer Role = "reviewer"
	// RoleAdversary probes for weaknesses; useful as a dissenting voice in
	// consensus rounds.
	RoleAdversary Role = "adversary"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleAnalyst, RoleCoder, RoleReviewer, RoleAdversary:
		return true
	default:
		return false
	}
}

// rolePrompts maps each role to its system prompt. Every prompt ends with
// the same confidence instruction so answers are comparable across roles.
var rolePrompts = map[Role]string{
	RoleAnalyst: "You are an analyst agent. Examine the task carefully, " +
		"identify the essential requirements, and give a precise, complete answer.",
	RoleCoder: "You are a coding agent. Solve the task with concrete, " +
		"working technical detail. Prefer the simplest correct solution.",
	RoleReviewer: "You are a reviewer agent. Answer the task as if " +
		"double-checking a colleague's work: be exact and flag nothing speculative.",
	RoleAdversary: "You are a red-team agent. Answer the task, but " +
		"actively look for the interpretation others will get wrong.",
}

const confidenceInstruction = "End your answer with a line of the form " +
	"\"Confidence: NN%\" rating your confidence from 0 to 100."

// SystemPrompt returns the full system prompt for a role.
func (r Role) SystemPrompt() string {
	prompt, ok := rolePrompts[r]
	if !ok {
		prompt = rolePrompts[RoleAnalyst]
	}
	return prompt + "\n\n" + confidenceInstruction
}
