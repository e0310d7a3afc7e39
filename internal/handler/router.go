package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campus-core/uni-records-api/internal/middleware"
)

// Handlers bundles every route handler for registration.
type Handlers struct {
	Students            *StudentHandler
	Teachers            *TeacherHandler
	Subjects            *SubjectHandler
	Courses             *CourseHandler
	Offerings           *OfferingHandler
	TeachingAssignments *TeachingAssignmentHandler
	Prerequisites       *PrerequisiteHandler
	Attendance          *AttendanceHandler
	Enrollments         *EnrollmentHandler
	Grades              *GradeHandler
	Locks               *LockHandler
	Exports             *ExportHandler
}

// RegisterRoutes mounts the API under the given prefix. Admin lock-fetch
// endpoints additionally require a registrar or admin token.
func RegisterRoutes(r gin.IRouter, prefix, jwtSecret string, h Handlers) {
	api := r.Group(prefix)

	students := api.Group("/students")
	students.GET("", h.Students.List)
	students.GET("/:ci", h.Students.Get)
	students.POST("", h.Students.Create)
	students.PUT("/:ci", h.Students.Update)
	students.DELETE("/:ci", h.Students.Delete)

	teachers := api.Group("/teachers")
	teachers.GET("", h.Teachers.List)
	teachers.GET("/:ci", h.Teachers.Get)
	teachers.POST("", h.Teachers.Create)
	teachers.PUT("/:ci", h.Teachers.Update)
	teachers.DELETE("/:ci", h.Teachers.Delete)

	subjects := api.Group("/subjects")
	subjects.GET("", h.Subjects.List)
	subjects.GET("/:code", h.Subjects.Get)
	subjects.POST("", h.Subjects.Create)
	subjects.PUT("/:code", h.Subjects.Update)
	subjects.DELETE("/:code", h.Subjects.Delete)

	courses := api.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.GET("/:id", h.Courses.Get)
	courses.POST("", h.Courses.Create)
	courses.PUT("/:id", h.Courses.Update)
	courses.DELETE("/:id", h.Courses.Delete)

	offerings := api.Group("/offerings")
	offerings.GET("", h.Offerings.List)
	offerings.GET("/:id", h.Offerings.Get)
	offerings.POST("", h.Offerings.Create)
	offerings.PUT("/:id", h.Offerings.Update)
	offerings.DELETE("/:id", h.Offerings.Delete)

	assignments := api.Group("/teaching-assignments")
	assignments.GET("", h.TeachingAssignments.List)
	assignments.GET("/:id", h.TeachingAssignments.Get)
	assignments.POST("", h.TeachingAssignments.Create)
	assignments.PUT("/:id", h.TeachingAssignments.Update)
	assignments.DELETE("/:id", h.TeachingAssignments.Delete)

	prerequisites := api.Group("/prerequisites")
	prerequisites.GET("", h.Prerequisites.List)
	prerequisites.GET("/:id", h.Prerequisites.Get)
	prerequisites.POST("", h.Prerequisites.Create)
	prerequisites.PUT("/:id", h.Prerequisites.Update)
	prerequisites.DELETE("/:id", h.Prerequisites.Delete)

	attendance := api.Group("/attendance")
	attendance.GET("", h.Attendance.List)
	attendance.GET("/:id", h.Attendance.Get)
	attendance.POST("", h.Attendance.Create)
	attendance.PUT("/:id", h.Attendance.Update)
	attendance.DELETE("/:id", h.Attendance.Delete)

	enrollments := api.Group("/enrollments")
	enrollments.GET("", h.Enrollments.List)
	enrollments.GET("/:id", h.Enrollments.Get)
	enrollments.POST("", h.Enrollments.Create)
	enrollments.PUT("/:id", h.Enrollments.Update)
	enrollments.DELETE("", h.Enrollments.DeleteByPair)
	enrollments.DELETE("/:id", h.Enrollments.Delete)

	grades := api.Group("/grades")
	grades.GET("", h.Grades.List)
	grades.GET("/:id", h.Grades.Get)
	grades.POST("", h.Grades.Create)
	grades.PUT("/:id", h.Grades.Update)
	grades.DELETE("/:id", h.Grades.Delete)

	// Download authorizes via the signed token itself, so it sits outside
	// the admin group.
	api.GET("/exports/download", h.Exports.Download)

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(jwtSecret), middleware.RequireRole("admin", "registrar"))
	admin.POST("/students/:ci/lock-fetch", h.Locks.FetchStudent)
	admin.POST("/teachers/:ci/lock-fetch", h.Locks.FetchTeacher)
	admin.POST("/subjects/:code/lock-fetch", h.Locks.FetchSubject)
	admin.POST("/courses/:id/lock-fetch", h.Locks.FetchCourse)
	admin.POST("/exports", h.Exports.Create)
	admin.GET("/exports/:id", h.Exports.Status)
}
