package policy

// Message template ids
const (
	MsgPasswordExpiredDaysAgo = "password_expiry.expired_days_ago"
	MsgPasswordExpired        = "password_expiry.expired"
	MsgPasswordNoChangeDate   = "password_expiry.no_change_date"
	MsgPolicyError            = "policy.error"
	MsgPolicyTimeout          = "policy.timeout"
	MsgPolicyNegated          = "policy.negated"
)

// Translations holds the templates for every message this package emits,
// keyed by locale then template id. Placeholders are positional: {0}, {1}.
var Translations = map[string]map[string]string{
	"en": {
		MsgPasswordExpiredDaysAgo: "Password expired {0} days ago. Please update your password.",
		MsgPasswordExpired:        "Password has expired.",
		MsgPasswordNoChangeDate:   "No password change date on record.",
		MsgPolicyError:            "Access could not be verified. Please try again later.",
		MsgPolicyTimeout:          "Access check took too long. Please try again later.",
		MsgPolicyNegated:          "Access denied by policy {0}.",
	},
	"de": {
		MsgPasswordExpiredDaysAgo: "Das Passwort ist vor {0} Tagen abgelaufen. Bitte aktualisieren Sie Ihr Passwort.",
		MsgPasswordExpired:        "Das Passwort ist abgelaufen.",
		MsgPasswordNoChangeDate:   "Kein Datum der letzten Passwortänderung vorhanden.",
		MsgPolicyError:            "Der Zugriff konnte nicht geprüft werden. Bitte versuchen Sie es später erneut.",
		MsgPolicyTimeout:          "Die Zugriffsprüfung hat zu lange gedauert. Bitte versuchen Sie es später erneut.",
		MsgPolicyNegated:          "Zugriff durch Richtlinie {0} verweigert.",
	},
}
