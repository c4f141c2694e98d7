// Package errors provides structured error handling with HTTP status mapping.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Auth errors
	CodeAuthInvalidCredentials Code = "AUTH_INVALID_CREDENTIALS"
	CodeAuthAccountInactive    Code = "AUTH_ACCOUNT_INACTIVE"
	CodeAuthAccountLocked      Code = "AUTH_ACCOUNT_LOCKED"
	CodeAuthTokenInvalid       Code = "AUTH_TOKEN_INVALID"
	CodeAuthTokenExpired       Code = "AUTH_TOKEN_EXPIRED"
	CodeAuthTokenRevoked       Code = "AUTH_TOKEN_REVOKED"
	CodeAuthWeakPassword       Code = "AUTH_WEAK_PASSWORD"
	CodeAuthForbidden          Code = "AUTH_FORBIDDEN"

	// Course errors
	CodeCourseCodeTaken  Code = "COURSE_CODE_TAKEN"
	CodeCourseInactive   Code = "COURSE_INACTIVE"
	CodeCourseSeatsFull  Code = "COURSE_SEATS_FULL"
	CodeCourseInvalid    Code = "COURSE_INVALID"

	// Student errors
	CodeStudentEmailTaken    Code = "STUDENT_EMAIL_TAKEN"
	CodeStudentInactive      Code = "STUDENT_INACTIVE"
	CodeStudentFinalSemester Code = "STUDENT_FINAL_SEMESTER"
	CodeStudentInvalid       Code = "STUDENT_INVALID"

	// Admission errors
	CodeAdmissionNotEligible     Code = "ADMISSION_NOT_ELIGIBLE"
	CodeAdmissionAlreadyDecided  Code = "ADMISSION_ALREADY_DECIDED"
	CodeAdmissionInvalidDecision Code = "ADMISSION_INVALID_DECISION"
	CodeAdmissionInvalid         Code = "ADMISSION_INVALID"

	// Fee errors
	CodeFeeNotPending          Code = "FEE_NOT_PENDING"
	CodeFeeNotPaid             Code = "FEE_NOT_PAID"
	CodeFeeDuplicateDemand     Code = "FEE_DUPLICATE_DEMAND"
	CodeFeeDiscountExceedsBase Code = "FEE_DISCOUNT_EXCEEDS_BASE"
	CodeFeeTransactionIDTaken  Code = "FEE_TRANSACTION_ID_TAKEN"
	CodeFeeInvalid             Code = "FEE_INVALID"

	// Library errors
	CodeLibraryBookUnavailable Code = "LIBRARY_BOOK_UNAVAILABLE"
	CodeLibraryAlreadyIssued   Code = "LIBRARY_ALREADY_ISSUED"
	CodeLibraryLoanLimit       Code = "LIBRARY_LOAN_LIMIT"
	CodeLibraryNotIssued       Code = "LIBRARY_NOT_ISSUED"
	CodeLibraryRenewalLimit    Code = "LIBRARY_RENEWAL_LIMIT"
	CodeLibraryOverdueRenewal  Code = "LIBRARY_OVERDUE_RENEWAL"
	CodeLibraryInvalid         Code = "LIBRARY_INVALID"

	// Hostel errors
	CodeHostelNoBeds           Code = "HOSTEL_NO_BEDS"
	CodeHostelAlreadyAllocated Code = "HOSTEL_ALREADY_ALLOCATED"
	CodeHostelNotAllocated     Code = "HOSTEL_NOT_ALLOCATED"
	CodeHostelGenderMismatch   Code = "HOSTEL_GENDER_MISMATCH"
	CodeHostelNameTaken        Code = "HOSTEL_NAME_TAKEN"
	CodeHostelInvalid          Code = "HOSTEL_INVALID"

	// Exam errors
	CodeExamResultDeclared    Code = "EXAM_RESULT_DECLARED"
	CodeExamResultNotDeclared Code = "EXAM_RESULT_NOT_DECLARED"
	CodeExamMarksOutOfRange   Code = "EXAM_MARKS_OUT_OF_RANGE"
	CodeExamInvalid           Code = "EXAM_INVALID"

	// Staff errors
	CodeStaffEmailTaken Code = "STAFF_EMAIL_TAKEN"
	CodeStaffInvalid    Code = "STAFF_INVALID"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"

	// Request errors
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodePayloadTooLarge Code = "PAYLOAD_TOO_LARGE"
)

// HTTPStatus maps the code to an HTTP response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAuthInvalidCredentials, CodeAuthTokenInvalid, CodeAuthTokenExpired, CodeAuthTokenRevoked:
		return http.StatusUnauthorized
	case CodeAuthForbidden, CodeAuthAccountInactive, CodeAuthAccountLocked:
		return http.StatusForbidden
	case CodeConflict, CodeCourseCodeTaken, CodeStudentEmailTaken, CodeStaffEmailTaken,
		CodeHostelNameTaken, CodeFeeTransactionIDTaken, CodeFeeDuplicateDemand,
		CodeLibraryAlreadyIssued, CodeHostelAlreadyAllocated, CodeAdmissionAlreadyDecided,
		CodeExamResultDeclared:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeFeeNotPending, CodeFeeNotPaid, CodeFeeDiscountExceedsBase,
		CodeLibraryBookUnavailable, CodeLibraryLoanLimit, CodeLibraryNotIssued,
		CodeLibraryRenewalLimit, CodeLibraryOverdueRenewal,
		CodeHostelNoBeds, CodeHostelNotAllocated, CodeHostelGenderMismatch,
		CodeCourseSeatsFull, CodeCourseInactive, CodeStudentInactive,
		CodeStudentFinalSemester, CodeAdmissionNotEligible,
		CodeAdmissionInvalidDecision, CodeExamResultNotDeclared,
		CodeExamMarksOutOfRange, CodeAuthWeakPassword:
		return http.StatusUnprocessableEntity
	case CodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
