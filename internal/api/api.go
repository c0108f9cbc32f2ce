// Package api holds the json bodies the REST service and its client exchange.
package api

import "pastquestions-backend/internal/questions"

type Message struct {
	Message string `json:"message"`
	// Added is how many questions a write endpoint stored.
	Added int `json:"added"`
}

type Error struct {
	Detail string `json:"detail"`
}

type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Filters struct {
	Subjects      []string `json:"subjects"`
	Years         []int    `json:"years"`
	Topics        []string `json:"topics"`
	QuestionTypes []string `json:"question_types"`
}

type Subject struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type ListQuestionsParams struct {
	Subject      string
	Year         *int
	ExamType     string
	QuestionType string
	Topic        string
}

type BulkUploadRequest = []questions.Question

type ListQuestionsResponse = []questions.Stored
