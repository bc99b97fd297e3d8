package services

import (
	"gorm.io/gorm"
)

// Services wires the workflow components once at startup; controllers
// hold a single instance.
type Services struct {
	Store        *GormStore
	StateMachine *StateMachine
	Assignments  *AssignmentService
	Consensus    *ConsensusService
	Conflicts    *ConflictService
	Artifacts    *ArtifactService
	Storage      ObjectStorage
}

func NewServices(db *gorm.DB, storage ObjectStorage, generator DocumentGenerator) *Services {
	store := NewGormStore(db)
	notifier := NewNotifier(store)
	artifacts := NewArtifactService(store, generator, storage)
	sm := NewStateMachine(store, artifacts, notifier)

	return &Services{
		Store:        store,
		StateMachine: sm,
		Assignments:  NewAssignmentService(store, sm, notifier),
		Consensus:    NewConsensusService(store, sm, notifier),
		Conflicts:    NewConflictService(store, sm, notifier),
		Artifacts:    artifacts,
		Storage:      storage,
	}
}
