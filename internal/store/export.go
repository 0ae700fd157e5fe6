package store

import (
	"fmt"
	"time"

	"github.com/quizforge/quizforge/internal/model"
)

// ExportCourse builds export-ready results for every student enrolled in a
// course. Each student's analyses for the course's quizzes become attempts.
func (s *Store) ExportCourse(courseID int64) (*model.CourseExport, error) {
	course, err := s.GetCourse(courseID)
	if err != nil {
		return nil, fmt.Errorf("get course %d: %w", courseID, err)
	}
	if course == nil {
		return nil, fmt.Errorf("course %d not found", courseID)
	}

	teacher, err := s.GetUserByID(course.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher %d: %w", course.TeacherID, err)
	}
	var teacherName string
	if teacher != nil {
		teacherName = teacher.DisplayName
	}

	quizzes, err := s.ListQuizzesByCourse(courseID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	titles := make(map[int64]string, len(quizzes))
	for _, q := range quizzes {
		titles[q.ID] = q.Title
	}

	students, err := s.ListEnrolledStudents(courseID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	var results []model.StudentResult
	for _, student := range students {
		analyses, err := s.ListAnalysesForStudent(student.ID)
		if err != nil {
			return nil, fmt.Errorf("list analyses for %d: %w", student.ID, err)
		}

		var attempts []model.QuizAttempt
		for _, a := range analyses {
			title, ok := titles[a.QuizID]
			if !ok {
				continue
			}
			attempts = append(attempts, model.QuizAttempt{
				QuizTitle:      title,
				TotalQuestions: a.Report.TotalQuestions,
				CorrectCount:   a.Report.CorrectCount,
				IncorrectCount: a.Report.IncorrectCount,
				Narrative:      a.Narrative,
				TakenAt:        a.CreatedAt,
			})
		}

		results = append(results, model.StudentResult{
			Username:    student.Username,
			DisplayName: student.DisplayName,
			Attempts:    attempts,
		})
	}

	return &model.CourseExport{
		CourseName: course.Name,
		Teacher:    teacherName,
		ExportedAt: time.Now(),
		Results:    results,
	}, nil
}
