package email

const (
	subjectWelcome     = "Welcome to Classifieds"
	subjectAdOnlineFmt = "Your ad \"%s\" is online"
)
