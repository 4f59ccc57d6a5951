package engine

import (
	"github.com/roach88/seamline/internal/model"
	"github.com/roach88/seamline/internal/stage"
)

// Matches reports whether a scan event belongs to a workflow node.
//
// An event matches when the node name matches the event's stage label, or
// matches its process label, or equals the process label exactly. Events
// with no stage label use their process label as the stage (see
// model.ScanEvent.EffectiveStage).
//
// The parent-stage rule (node.ParentStage matches the stage label AND the
// process label matches the node) keeps old events resolvable after a
// template renames a leaf process. Its process condition already satisfies
// the second clause, so it needs no separate check.
func Matches(node model.WorkflowNode, ev model.ScanEvent) bool {
	name := stage.Resolve(node.Name)
	if stage.MatchKeys(name, stage.Resolve(ev.EffectiveStage())) {
		return true
	}
	if stage.MatchKeys(name, stage.Resolve(ev.ProcessLabel)) {
		return true
	}
	return ev.ProcessLabel != "" && ev.ProcessLabel == node.Name
}

// SelectEvents returns the events that count toward a node, preserving input
// order.
func SelectEvents(node model.WorkflowNode, events []model.ScanEvent) []model.ScanEvent {
	var out []model.ScanEvent
	for _, ev := range events {
		if !ev.Counts() {
			continue
		}
		if Matches(node, ev) {
			out = append(out, ev)
		}
	}
	return out
}
