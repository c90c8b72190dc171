package email

const (
	subjectLeadAssignedFmt  = "New lead assigned: %s"
	subjectStaleLeadsFmt    = "%d leads need attention"
	subjectImportSummaryFmt = "Import finished: %d leads created"
)
