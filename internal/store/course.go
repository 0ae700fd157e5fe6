package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/quizforge/quizforge/internal/model"
)

// Enrollment errors returned by EnrollStudent and DropStudent.
var (
	ErrCourseFull      = errors.New("course is at capacity")
	ErrAlreadyEnrolled = errors.New("student already enrolled")
	ErrNotEnrolled     = errors.New("student not enrolled")
)

// CreateCourse inserts a course owned by a teacher.
func (s *Store) CreateCourse(c model.Course) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO courses (name, description, teacher_id, capacity, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Description, c.TeacherID, c.Capacity, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetCourse returns a course by ID, or nil if not found.
func (s *Store) GetCourse(id int64) (*model.Course, error) {
	var c model.Course
	err := s.db.QueryRow(
		`SELECT id, name, description, teacher_id, capacity, created_at FROM courses WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.TeacherID, &c.Capacity, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCourses returns all courses.
func (s *Store) ListCourses() ([]model.Course, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, teacher_id, capacity, created_at FROM courses ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.TeacherID, &c.Capacity, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// ListCoursesByTeacher returns the courses owned by a teacher.
func (s *Store) ListCoursesByTeacher(teacherID int64) ([]model.Course, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, teacher_id, capacity, created_at FROM courses WHERE teacher_id = ? ORDER BY id`,
		teacherID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.TeacherID, &c.Capacity, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// EnrollStudent enrolls a student in a course. Capacity 0 means unlimited.
func (s *Store) EnrollStudent(courseID, studentID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM enrollments WHERE course_id = ? AND student_id = ?`, courseID, studentID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ErrAlreadyEnrolled
	}

	var capacity, enrolled int
	err = tx.QueryRow(`SELECT capacity FROM courses WHERE id = ?`, courseID).Scan(&capacity)
	if err != nil {
		return err
	}
	err = tx.QueryRow(`SELECT COUNT(*) FROM enrollments WHERE course_id = ?`, courseID).Scan(&enrolled)
	if err != nil {
		return err
	}
	if capacity > 0 && enrolled >= capacity {
		return ErrCourseFull
	}

	_, err = tx.Exec(
		`INSERT INTO enrollments (course_id, student_id, created_at) VALUES (?, ?, ?)`,
		courseID, studentID, time.Now(),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// DropStudent removes a student's enrollment.
func (s *Store) DropStudent(courseID, studentID int64) error {
	res, err := s.db.Exec(
		`DELETE FROM enrollments WHERE course_id = ? AND student_id = ?`, courseID, studentID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotEnrolled
	}
	return nil
}

// IsEnrolled reports whether the student is enrolled in the course.
func (s *Store) IsEnrolled(courseID, studentID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM enrollments WHERE course_id = ? AND student_id = ?`, courseID, studentID,
	).Scan(&count)
	return count > 0, err
}

// SetCourseScore records a teacher-assigned score for an enrolled student.
func (s *Store) SetCourseScore(courseID, studentID int64, score float64) error {
	res, err := s.db.Exec(
		`UPDATE enrollments SET score = ? WHERE course_id = ? AND student_id = ?`,
		score, courseID, studentID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotEnrolled
	}
	return nil
}

// ListScoresForStudent returns the student's enrollments with course names
// and any recorded scores.
func (s *Store) ListScoresForStudent(studentID int64) ([]model.CourseScore, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.name, e.score
		 FROM enrollments e JOIN courses c ON c.id = e.course_id
		 WHERE e.student_id = ? ORDER BY c.id`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var scores []model.CourseScore
	for rows.Next() {
		var cs model.CourseScore
		if err := rows.Scan(&cs.CourseID, &cs.CourseName, &cs.Score); err != nil {
			return nil, err
		}
		scores = append(scores, cs)
	}
	return scores, rows.Err()
}

// ListEnrolledStudents returns the students enrolled in a course.
func (s *Store) ListEnrolledStudents(courseID int64) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT u.id, u.username, u.display_name, u.password_hash, u.role, u.active, u.created_at
		 FROM users u JOIN enrollments e ON e.student_id = u.id
		 WHERE e.course_id = ? ORDER BY u.id`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
