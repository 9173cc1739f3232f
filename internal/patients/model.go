package patients

// Profile is a patient's metadata item in the main table. Identity fields
// come from the verified token at creation time and are never updated.
type Profile struct {
	PK         string `dynamodbav:"PK" json:"-"`
	SK         string `dynamodbav:"SK" json:"-"`
	PatientID  string `dynamodbav:"patientId" json:"patientId"`
	GivenName  string `dynamodbav:"given_name" json:"given_name"`
	FamilyName string `dynamodbav:"family_name" json:"family_name"`
	Email      string `dynamodbav:"email" json:"email"`
	UserType   string `dynamodbav:"userType" json:"userType"`
	CreatedAt  string `dynamodbav:"createdAt" json:"createdAt"`
}

// Patient is an entry in the legacy public registry, which lives in its own
// table keyed by patientId with an email GSI for uniqueness checks.
type Patient struct {
	PatientID  string `dynamodbav:"patientId" json:"patientId"`
	GivenName  string `dynamodbav:"given_name" json:"given_name"`
	FamilyName string `dynamodbav:"family_name" json:"family_name"`
	Email      string `dynamodbav:"email" json:"email"`
	CreatedAt  string `dynamodbav:"createdAt" json:"createdAt"`
}
