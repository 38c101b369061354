// Package model defines the core data structures used throughout
// the savemyexam-downloader application.
//
// # ResourceNode
//
// ResourceNode is one node of the remote document tree. Its Kind tells
// which level it sits on:
//
//	subject → resource group → section → sub-section → leaf file
//
// Exam question groups skip the sub-section level. Titles are sanitized on
// construction so they can be used as path segments directly:
//
//	node := model.NewNode(model.KindSection, "Topic 1: Cells", url, model.GroupRevisionNotes)
//	fmt.Println(node.Title) // "Topic 1- Cells"
//
// # SubjectJob
//
// SubjectJob tracks one selected subject and its download counters:
//
//	job := model.NewSubjectJob("Biology", "A Level", resourceURL)
//	job.AddTotal(10)
//	job.AddDownloaded(1)
//	state := job.Snapshot()
//
// # FailedTask and ConcurrencyBudget
//
// FailedTask describes a leaf download waiting in the failure queue;
// ConcurrencyBudget carries the per-traversal concurrency caps.
package model
