package apiclient

import "sync"

type User struct {
	UserID    int    `json:"userID"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type Company struct {
	CompanyID      int    `json:"companyID"`
	CompanyName    string `json:"companyName"`
	CurrencySymbol string `json:"currencySymbol"`
}

// AuthResponse is what /Auth/Login and /Auth/Signup answer.
type AuthResponse struct {
	Token   string  `json:"token"`
	User    User    `json:"user"`
	Company Company `json:"company"`
}

// Session holds the bearer credential for one signed-in user. It is filled
// by Client.Login and emptied by Logout; requests made while it is empty
// fail with ErrUnauthenticated without touching the network.
type Session struct {
	mu      sync.RWMutex
	token   string
	user    User
	company Company
}

func NewSession() *Session { return &Session{} }

func (s *Session) set(a AuthResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = a.Token
	s.user = a.User
	s.company = a.Company
}

// Restore sets a token obtained earlier, e.g. from a credential store.
func (s *Session) Restore(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = User{}
	s.company = Company{}
}

func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) Company() Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.company
}
