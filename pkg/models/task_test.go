package models

import "testing"

func TestTaskStatusValid(t *testing.T) {
	valid := []TaskStatus{
		TaskStatusPending,
		TaskStatusReady,
		TaskStatusRunning,
		TaskStatusAwaitingConsensus,
		TaskStatusSucceeded,
		TaskStatusFailed,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}

	if TaskStatus("bogus").Valid() {
		t.Error("expected bogus status to be invalid")
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	if !TaskStatusSucceeded.Terminal() {
		t.Error("succeeded should be terminal")
	}
	if !TaskStatusFailed.Terminal() {
		t.Error("failed should be terminal")
	}
	if TaskStatusRunning.Terminal() {
		t.Error("running should not be terminal")
	}
	if TaskStatusAwaitingConsensus.Terminal() {
		t.Error("awaiting_consensus should not be terminal")
	}
}

func TestTaskQuorumSize(t *testing.T) {
	single := &Task{ID: "a"}
	if single.NeedsConsensus() {
		t.Error("task without fault tolerance should not need consensus")
	}
	if got := single.QuorumSize(); got != 1 {
		t.Errorf("expected quorum size 1, got %d", got)
	}

	f := 1
	quorum := &Task{ID: "b", FaultTolerance: &f}
	if !quorum.NeedsConsensus() {
		t.Error("task with fault tolerance should need consensus")
	}
	if got := quorum.QuorumSize(); got != 3 {
		t.Errorf("expected quorum size 3 for f=1, got %d", got)
	}

	zero := 0
	quorum.FaultTolerance = &zero
	if got := quorum.QuorumSize(); got != 1 {
		t.Errorf("expected quorum size 1 for f=0, got %d", got)
	}
}

func TestAgentAnswerEmpty(t *testing.T) {
	var nilAnswer *AgentAnswer
	if !nilAnswer.Empty() {
		t.Error("nil answer should be empty")
	}
	if !(&AgentAnswer{TaskID: "a"}).Empty() {
		t.Error("answer without content should be empty")
	}
	if (&AgentAnswer{Content: "result"}).Empty() {
		t.Error("answer with content should not be empty")
	}
}
