package domain

// Status is the progress view shown to a user for /start and the Check action.
type Status struct {
	User             User
	Balance          int
	Remaining        int
	Milestone        int
	ReachedMilestone bool
}
