package transparency

import "time"

// SubmitterRole identifies who wrote to the shared ledger.
type SubmitterRole string

const (
	SubmitterLab           SubmitterRole = "lab"
	SubmitterWhistleblower SubmitterRole = "whistleblower"
	SubmitterAuditor       SubmitterRole = "auditor"
)

// ConcernStatus tracks a concern through the resolution workflow.
type ConcernStatus string

const (
	ConcernOpen      ConcernStatus = "open"
	ConcernAddressed ConcernStatus = "addressed"
	ConcernDisputed  ConcernStatus = "disputed"
	ConcernResolved  ConcernStatus = "resolved"
)

// ConcernCategory classifies a concern.
type ConcernCategory string

const (
	CategorySafetyEval     ConcernCategory = "safety_eval"
	CategoryTrainingData   ConcernCategory = "training_data"
	CategoryCapabilityRisk ConcernCategory = "capability_risk"
	CategoryDeployment     ConcernCategory = "deployment"
	CategoryDocumentation  ConcernCategory = "documentation"
	CategoryProcess        ConcernCategory = "process"
	CategoryOther          ConcernCategory = "other"
)

func (c ConcernCategory) Valid() bool {
	switch c {
	case CategorySafetyEval, CategoryTrainingData, CategoryCapabilityRisk,
		CategoryDeployment, CategoryDocumentation, CategoryProcess, CategoryOther:
		return true
	}
	return false
}

// ConcernInput is the caller-supplied part of a concern.
type ConcernInput struct {
	Category     ConcernCategory `json:"category"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	EvidenceHash string          `json:"evidence_hash,omitempty"`
	DeploymentID string          `json:"deployment_id,omitempty"`
	ModelID      string          `json:"model_id,omitempty"`
}

// Concern is a hash-stamped entry in the shared ledger.
type Concern struct {
	ID            string          `json:"id"`
	Category      ConcernCategory `json:"category"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	SubmitterID   string          `json:"submitter_id"`
	SubmitterRole SubmitterRole   `json:"submitter_role"`
	Status        ConcernStatus   `json:"status"`
	EvidenceHash  string          `json:"evidence_hash,omitempty"`
	DeploymentID  string          `json:"deployment_id,omitempty"`
	ModelID       string          `json:"model_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Hash          string          `json:"hash"`
}

// ResponseInput is a reply to an open concern.
type ResponseInput struct {
	ConcernID    string `json:"concern_id"`
	ResponseText string `json:"response_text"`
	EvidenceHash string `json:"evidence_hash,omitempty"`
}

// Response is a recorded reply, usually from the lab named by a concern.
type Response struct {
	ID            string        `json:"id"`
	ConcernID     string        `json:"concern_id"`
	ResponseText  string        `json:"response_text"`
	ResponderID   string        `json:"responder_id"`
	ResponderRole SubmitterRole `json:"responder_role"`
	EvidenceHash  string        `json:"evidence_hash,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
	Hash          string        `json:"hash"`
}

// Resolution closes a concern; only auditors issue them.
type Resolution struct {
	ID              string    `json:"id"`
	ConcernID       string    `json:"concern_id"`
	ResolutionNotes string    `json:"resolution_notes"`
	AuditorID       string    `json:"auditor_id"`
	Timestamp       time.Time `json:"timestamp"`
	Hash            string    `json:"hash"`
}

// TemplateType names a compliance document a lab must file.
type TemplateType string

const (
	TemplateSafetyEvaluation     TemplateType = "safety_evaluation"
	TemplateTrainingData         TemplateType = "training_data"
	TemplateCapabilityAssessment TemplateType = "capability_assessment"
	TemplateRedTeamReport        TemplateType = "red_team_report"
	TemplateHumanOversight       TemplateType = "human_oversight"
	TemplateIncidentReport       TemplateType = "incident_report"
)

// TemplateTypes lists every template, in declaration order.
func TemplateTypes() []TemplateType {
	return []TemplateType{
		TemplateSafetyEvaluation, TemplateTrainingData,
		TemplateCapabilityAssessment, TemplateRedTeamReport,
		TemplateHumanOversight, TemplateIncidentReport,
	}
}

func (t TemplateType) Valid() bool {
	switch t {
	case TemplateSafetyEvaluation, TemplateTrainingData, TemplateCapabilityAssessment,
		TemplateRedTeamReport, TemplateHumanOversight, TemplateIncidentReport:
		return true
	}
	return false
}

// SubmissionStatus tracks a compliance submission through review.
type SubmissionStatus string

const (
	SubmissionSubmitted   SubmissionStatus = "submitted"
	SubmissionUnderReview SubmissionStatus = "under_review"
	SubmissionVerified    SubmissionStatus = "verified"
	SubmissionRejected    SubmissionStatus = "rejected"
)

// SubmissionInput is a compliance document filed by a lab.
type SubmissionInput struct {
	TemplateType TemplateType   `json:"template_type"`
	DeploymentID string         `json:"deployment_id"`
	ModelID      string         `json:"model_id"`
	Title        string         `json:"title"`
	Summary      string         `json:"summary"`
	EvidenceHash string         `json:"evidence_hash"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Submission is a compliance document in the ledger.
type Submission struct {
	ID           string           `json:"id"`
	TemplateType TemplateType     `json:"template_type"`
	DeploymentID string           `json:"deployment_id"`
	ModelID      string           `json:"model_id"`
	LabID        string           `json:"lab_id"`
	Title        string           `json:"title"`
	Summary      string           `json:"summary"`
	EvidenceHash string           `json:"evidence_hash"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
	Status       SubmissionStatus `json:"status"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	ReviewedAt   *time.Time       `json:"reviewed_at,omitempty"`
	ReviewedBy   string           `json:"reviewed_by,omitempty"`
	ReviewNotes  string           `json:"review_notes,omitempty"`
	Hash         string           `json:"hash"`
}

// ReviewInput is an auditor's verdict on a submission.
type ReviewInput struct {
	SubmissionID     string           `json:"submission_id"`
	Status           SubmissionStatus `json:"status"`
	Notes            string           `json:"notes"`
	EvidenceVerified bool             `json:"evidence_verified"`
}

// Clearance summarizes whether a deployment's concerns are all resolved.
type Clearance struct {
	DeploymentID      string `json:"deployment_id"`
	TotalConcerns     int    `json:"total_concerns"`
	OpenConcerns      int    `json:"open_concerns"`
	AddressedConcerns int    `json:"addressed_concerns"`
	ResolvedConcerns  int    `json:"resolved_concerns"`
	IsCleared         bool   `json:"is_cleared"`
	Message           string `json:"message"`
}

// ComplianceStatus is the unified deployment gate: required templates
// verified AND every concern resolved.
type ComplianceStatus struct {
	DeploymentID       string         `json:"deployment_id"`
	ModelID            string         `json:"model_id"`
	RequiredTemplates  []TemplateType `json:"required_templates"`
	SubmittedTemplates []TemplateType `json:"submitted_templates"`
	VerifiedTemplates  []TemplateType `json:"verified_templates"`
	MissingTemplates   []TemplateType `json:"missing_templates"`
	RejectedTemplates  []TemplateType `json:"rejected_templates"`
	OpenConcerns       int            `json:"open_concerns"`
	UnresolvedConcerns int            `json:"unresolved_concerns"`
	ResolvedConcerns   int            `json:"resolved_concerns"`
	ComplianceComplete bool           `json:"compliance_complete"`
	ConcernsResolved   bool           `json:"concerns_resolved"`
	IsCleared          bool           `json:"is_cleared"`
	Message            string         `json:"message"`
}

// Stats aggregates ledger contents for dashboards.
type Stats struct {
	TotalConcerns        int                      `json:"total_concerns"`
	ConcernsByStatus     map[ConcernStatus]int    `json:"concerns_by_status"`
	ConcernsByRole       map[SubmitterRole]int    `json:"concerns_by_role"`
	TotalResponses       int                      `json:"total_responses"`
	TotalResolutions     int                      `json:"total_resolutions"`
	TotalSubmissions     int                      `json:"total_compliance_submissions"`
	ComplianceByStatus   map[SubmissionStatus]int `json:"compliance_by_status"`
	ComplianceByTemplate map[TemplateType]int     `json:"compliance_by_template"`
}
