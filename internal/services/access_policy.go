package services

import (
	"github.com/SAP-F-2025/exam-service/internal/models"
)

type Capability string

const (
	CapManageQuestions   Capability = "questions:manage"
	CapGenerateQuestions Capability = "questions:generate"
	CapManageBatches     Capability = "batches:manage"
	CapDeployExams       Capability = "exams:deploy"
	CapTakeExams         Capability = "exams:take"
	CapViewExamResults   Capability = "results:view_exam"
	CapViewOwnResults    Capability = "results:view_own"
)

// AccessPolicy is the single place role checks are made
type AccessPolicy interface {
	Can(principal *models.User, capability Capability) bool
	Require(principal *models.User, capability Capability) error
	// CanManageExam allows the owning teacher and admins
	CanManageExam(principal *models.User, exam *models.Exam) error
	// CanViewExamResults additionally allows proctors
	CanViewExamResults(principal *models.User, exam *models.Exam) error
	// CanManageQuestion allows the owning teacher and admins
	CanManageQuestion(principal *models.User, question *models.Question) error
}

var defaultCapabilities = map[models.UserRole][]Capability{
	models.RoleTeacher: {CapManageQuestions, CapManageBatches, CapDeployExams, CapViewExamResults, CapGenerateQuestions},
	models.RoleStudent: {CapTakeExams, CapViewOwnResults},
	models.RoleProctor: {CapViewExamResults},
}

type rolePolicy struct {
	capabilities map[models.UserRole]map[Capability]bool
}

func NewAccessPolicy() AccessPolicy {
	capabilities := make(map[models.UserRole]map[Capability]bool, len(defaultCapabilities))
	for role, caps := range defaultCapabilities {
		set := make(map[Capability]bool, len(caps))
		for _, c := range caps {
			set[c] = true
		}
		capabilities[role] = set
	}
	return &rolePolicy{capabilities: capabilities}
}

func (p *rolePolicy) Can(principal *models.User, capability Capability) bool {
	if principal == nil {
		return false
	}
	if principal.IsAdmin() {
		return true
	}
	return p.capabilities[principal.Role][capability]
}

func (p *rolePolicy) Require(principal *models.User, capability Capability) error {
	if p.Can(principal, capability) {
		return nil
	}
	return NewPermissionError(principalID(principal), string(capability), "", "role not allowed")
}

func (p *rolePolicy) CanManageExam(principal *models.User, exam *models.Exam) error {
	if err := p.Require(principal, CapDeployExams); err != nil {
		return err
	}
	if principal.IsAdmin() || exam.TeacherID == principal.ID {
		return nil
	}
	return NewPermissionError(principal.ID, "manage", "exam "+exam.ID, "not the exam owner")
}

func (p *rolePolicy) CanViewExamResults(principal *models.User, exam *models.Exam) error {
	if err := p.Require(principal, CapViewExamResults); err != nil {
		return err
	}
	if principal.IsAdmin() || principal.Role == models.RoleProctor || exam.TeacherID == principal.ID {
		return nil
	}
	return NewPermissionError(principal.ID, "view results", "exam "+exam.ID, "not the exam owner")
}

func (p *rolePolicy) CanManageQuestion(principal *models.User, question *models.Question) error {
	if err := p.Require(principal, CapManageQuestions); err != nil {
		return err
	}
	if principal.IsAdmin() || question.TeacherID == principal.ID {
		return nil
	}
	return NewPermissionError(principal.ID, "manage", "question "+question.ID, "not the question owner")
}

func principalID(principal *models.User) string {
	if principal == nil {
		return ""
	}
	return principal.ID
}

// ownerScope is the teacher id used to scope listings; admins see everything
func ownerScope(principal *models.User) string {
	if principal.IsAdmin() {
		return ""
	}
	return principal.ID
}
