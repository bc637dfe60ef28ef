package models

type Contact struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type Testimonial struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Comment   string `json:"comment"`
	Rating    int    `json:"rating"`
	Timestamp string `json:"timestamp"`
}

type VisitorCounter struct {
	ID    string `json:"id"`
	Count int64  `json:"count"`
}
