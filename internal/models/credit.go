package models

// Job category codes used by the dataset.
const (
	JobUnskilledNonResident = 0
	JobUnskilledResident    = 1
	JobSkilled              = 2
	JobHighlySkilled        = 3
)

// Unknown replaces missing account levels.
const Unknown = "unknown"

// Risk labels.
const (
	RiskGood = "good"
	RiskBad  = "bad"
)

// Age groups, right-closed: (0,25], (25,35], (35,45], (45,55], >55.
var AgeGroups = []string{"18-25", "26-35", "36-45", "46-55", "55+"}

// Amount groups, five equal-width bins over the dataset's credit amount range.
var AmountGroups = []string{"Very Low", "Low", "Medium", "High", "Very High"}

// CreditApplication represents one applicant row of the credit dataset
type CreditApplication struct {
	Age             int    `csv:"Age" json:"age"`
	Sex             string `csv:"Sex" json:"sex"`
	Job             int    `csv:"Job" json:"job"`
	Housing         string `csv:"Housing" json:"housing"`
	SavingAccounts  string `csv:"Saving accounts" json:"saving_accounts"`
	CheckingAccount string `csv:"Checking account" json:"checking_account"`
	CreditAmount    int    `csv:"Credit amount" json:"credit_amount"`
	Duration        int    `csv:"Duration" json:"duration"`
	Purpose         string `csv:"Purpose" json:"purpose"`
	Risk            string `csv:"Risk" json:"risk,omitempty"`

	// Derived at load time
	AgeGroup    string `csv:"Age group" json:"age_group"`
	AmountGroup string `csv:"Credit amount group" json:"amount_group"`
}

// JobLabel returns a readable name for a job category code
func JobLabel(job int) string {
	switch job {
	case JobUnskilledNonResident:
		return "unskilled non-resident"
	case JobUnskilledResident:
		return "unskilled resident"
	case JobSkilled:
		return "skilled"
	case JobHighlySkilled:
		return "highly skilled"
	default:
		return "other"
	}
}

// AgeGroupOf maps an age to its group label.
func AgeGroupOf(age int) string {
	switch {
	case age <= 25:
		return AgeGroups[0]
	case age <= 35:
		return AgeGroups[1]
	case age <= 45:
		return AgeGroups[2]
	case age <= 55:
		return AgeGroups[3]
	default:
		return AgeGroups[4]
	}
}
