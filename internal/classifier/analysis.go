package classifier

import "fmt"

// renderAnalysis produces the operator-facing explanation for a
// verdict. The wording depends only on severity and the observed
// speeds, so identical observations always render identical text.
func renderAnalysis(v ThreatVerdict) string {
	typing := v.TypingCategory.Describe()
	mouse := v.MouseCategory.Describe()

	switch v.Severity {
	case SeverityCritical:
		return fmt.Sprintf(
			"%s detected with high confidence. The observed behavior shows %s typing speed (%.2f k/s) and %s mouse movements (%.2f px/s), which is highly consistent with automated tools or scripts. Both detection algorithms flagged this as suspicious activity with high confidence scores.",
			v.Description, typing, v.Sample.TypingSpeed, mouse, v.Sample.MouseSpeed)
	case SeverityHigh:
		return fmt.Sprintf(
			"Potential %s identified. The system detected %s typing speed (%.2f k/s) with %s mouse movements (%.2f px/s), creating a behavioral pattern consistent with unauthorized access attempts. Multiple detection algorithms confirmed this anomalous behavior pattern.",
			v.Description, typing, v.Sample.TypingSpeed, mouse, v.Sample.MouseSpeed)
	case SeverityMedium:
		return fmt.Sprintf(
			"%s detected. The user shows %s typing speed (%.2f k/s) and %s mouse movement (%.2f px/s), which differs from typical behavioral patterns. This combination was flagged by at least one detection algorithm as potentially suspicious activity.",
			v.Description, typing, v.Sample.TypingSpeed, mouse, v.Sample.MouseSpeed)
	case SeverityLow:
		return fmt.Sprintf(
			"Low-risk %s detected. The user's %s typing speed (%.2f k/s) and %s mouse movement (%.2f px/s) show some deviation from normal patterns, but without strong indicators of malicious intent. This may be a legitimate user with slightly unusual behavior patterns.",
			v.Description, typing, v.Sample.TypingSpeed, mouse, v.Sample.MouseSpeed)
	default:
		return fmt.Sprintf(
			"Normal user activity detected. The user's %s typing speed (%.2f k/s) and %s mouse movement (%.2f px/s) match expected behavioral patterns for legitimate users. Both anomaly detection algorithms confirm this is within normal parameters.",
			typing, v.Sample.TypingSpeed, mouse, v.Sample.MouseSpeed)
	}
}

// recommendedActions maps a severity to its response playbook.
func recommendedActions(s Severity) []string {
	switch s {
	case SeverityCritical:
		return []string{
			"Immediately block access and terminate current session",
			"Require additional out-of-band authentication",
			"Conduct full security audit of account activities",
			"Monitor for similar patterns across other accounts",
		}
	case SeverityHigh:
		return []string{
			"Trigger step-up authentication immediately",
			"Restrict access to sensitive resources",
			"Monitor all activities in real-time",
			"Consider temporary account suspension if behavior continues",
		}
	case SeverityMedium:
		return []string{
			"Request additional verification",
			"Increase monitoring level for this session",
			"Apply least-privilege access restrictions temporarily",
		}
	case SeverityLow:
		return []string{
			"Continue monitoring behavior",
			"No immediate action required",
			"Review if pattern persists over multiple sessions",
		}
	default:
		return []string{
			"Continue standard monitoring",
			"No security action required",
		}
	}
}
