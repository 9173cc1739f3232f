package providers

// Profile is a provider's metadata item. Unlike patient profiles it is
// upsertable; every write replaces the previous item.
type Profile struct {
	PK         string `dynamodbav:"PK" json:"-"`
	SK         string `dynamodbav:"SK" json:"-"`
	ProviderID string `dynamodbav:"providerId" json:"providerId"`
	GivenName  string `dynamodbav:"given_name" json:"given_name"`
	FamilyName string `dynamodbav:"family_name" json:"family_name"`
	Email      string `dynamodbav:"email" json:"email"`
	Specialty  string `dynamodbav:"specialty" json:"specialty"`
	Bio        string `dynamodbav:"bio" json:"bio"`
	UserType   string `dynamodbav:"userType" json:"userType"`
	UpdatedAt  string `dynamodbav:"updatedAt" json:"updatedAt"`
}

// PatientRef is a unique (patientId, patientName) pair derived from a
// provider's schedule.
type PatientRef struct {
	PatientID   string `json:"patientId"`
	PatientName string `json:"patientName"`
}
