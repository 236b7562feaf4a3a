package engine

// =============================================================================
// JOURNEY MILESTONE DETECTOR
// =============================================================================

// courseDuration returns the working-unit baseline for a course level.
func courseDuration(level CourseLevel) int {
	switch level {
	case LevelB1, LevelB2:
		return 60
	case LevelNew, LevelSpoken:
		return 30
	default: // A1, A2 and anything unrecognized
		return 40
	}
}

// DetectMilestone finds the course-progress checkpoint a student is at, if
// any. Rules are evaluated in order; the first match wins. Returns nil when
// no milestone applies.
//
// The boost weight feeds directly into the Priority Scorer: milestones mark
// the points in a student's journey where a call predictably lands well
// (welcome, mid-course slump, completion push).
func DetectMilestone(level CourseLevel, enrollmentDays, classesAttended int) *MilestoneHit {
	duration := courseDuration(level)
	mid := duration / 2

	switch {
	case enrollmentDays <= 7:
		return &MilestoneHit{Milestone: MilestoneWelcome, Boost: 8}
	case enrollmentDays <= 14:
		return &MilestoneHit{Milestone: MilestoneSettlingIn, Boost: 6}
	case classesAttended >= mid-3 && classesAttended <= mid+3:
		return &MilestoneHit{Milestone: MilestoneMidCourse, Boost: 7}
	case classesAttended >= duration-7 && classesAttended < duration:
		return &MilestoneHit{Milestone: MilestonePreCompletion, Boost: 9}
	case classesAttended >= duration && classesAttended <= duration+5:
		return &MilestoneHit{Milestone: MilestoneCompletionDue, Boost: 10}
	case classesAttended > duration+10:
		return &MilestoneHit{Milestone: MilestoneOverdue, Boost: 8}
	default:
		return nil
	}
}
