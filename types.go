package credora

// ============================================================================
// Auth Types
// ============================================================================

// User is the account summary returned at login.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

// TokenResponse is the body of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message  string `json:"message"`
	UserID   int    `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
}

// ============================================================================
// Loan Types
// ============================================================================

// Application statuses reported by the backend.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

type ApplicantSummary struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// LoanApplication mirrors the backend's application response. Scores are
// produced server-side and are nil until the application has been processed.
type LoanApplication struct {
	ID     int `json:"id"`
	UserID int `json:"user_id"`

	NoOfDependents         int     `json:"no_of_dependents"`
	IncomeAnnum            float64 `json:"income_annum"`
	LoanAmount             float64 `json:"loan_amount"`
	LoanTerm               int     `json:"loan_term"`
	CibilScore             int     `json:"cibil_score"`
	ResidentialAssetsValue float64 `json:"residential_assets_value"`
	CommercialAssetsValue  float64 `json:"commercial_assets_value"`
	LuxuryAssetsValue      float64 `json:"luxury_assets_value"`
	BankAssetValue         float64 `json:"bank_asset_value"`
	Education              string  `json:"education"`
	SelfEmployed           bool    `json:"self_employed"`

	ApprovalProbability *float64 `json:"approval_probability"`
	FraudScore          *float64 `json:"fraud_score"`
	FinalDecision       *string  `json:"final_decision"`
	AIReasoning         *string  `json:"ai_reasoning,omitempty"`
	Status              string   `json:"status"`
	CreatedAt           string   `json:"created_at"`

	User *ApplicantSummary `json:"user,omitempty"`
}

// ApplicationRequest is the body of POST /api/loan/apply. Education is
// "Graduate" or "Not Graduate".
type ApplicationRequest struct {
	NoOfDependents         int     `json:"no_of_dependents"`
	Education              string  `json:"education"`
	SelfEmployed           bool    `json:"self_employed"`
	IncomeAnnum            float64 `json:"income_annum"`
	LoanAmount             float64 `json:"loan_amount"`
	LoanTerm               int     `json:"loan_term"`
	CibilScore             *int    `json:"cibil_score,omitempty"`
	ResidentialAssetsValue float64 `json:"residential_assets_value"`
	CommercialAssetsValue  float64 `json:"commercial_assets_value"`
	LuxuryAssetsValue      float64 `json:"luxury_assets_value"`
	BankAssetValue         float64 `json:"bank_asset_value"`
}

type SubmitResponse struct {
	Message       string `json:"message"`
	ApplicationID int    `json:"application_id"`
	CibilScore    int    `json:"cibil_score"`
}

// ReviewResponse is returned after an admin decision.
type ReviewResponse struct {
	Message       string `json:"message"`
	ApplicationID int    `json:"application_id"`
	Status        string `json:"status"`
	ReviewedBy    string `json:"reviewed_by"`
}

// Processed reports whether the backend has scored the application.
func (a *LoanApplication) Processed() bool {
	return a.ApprovalProbability != nil
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status           string `json:"status"`
	Database         string `json:"database"`
	UploadsDirectory bool   `json:"uploads_directory"`
}
