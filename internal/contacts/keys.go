package contacts

const (
	// KeyPrefix covers both the id-keyed and email-keyed copies, plus the
	// contact-scoped activity and task indexes.
	KeyPrefix      = "crm_contact_"
	EmailKeyPrefix = "crm_contact_email_"
)

func idKey(id string) string {
	return KeyPrefix + id
}

func emailKey(email string) string {
	return EmailKeyPrefix + email
}
