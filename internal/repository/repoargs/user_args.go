package repoargs

type CreateUser struct {
	Username string
	Email    string
	FullName string
	Password string
}
