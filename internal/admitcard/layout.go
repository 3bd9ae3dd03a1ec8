package admitcard

// Page geometry is in millimetres on an A4 portrait page; font sizes are points.

type rgb struct{ R, G, B int }

var (
	colorRed     = rgb{181, 60, 60}
	colorDarkRed = rgb{127, 42, 42}
	colorBeige   = rgb{242, 229, 217}
	colorBlack   = rgb{0, 0, 0}
	colorGray    = rgb{100, 100, 100}
	colorHeader  = rgb{240, 240, 240}
)

const (
	schoolName    = "SONIA PUBLIC SR. SEC. SCHOOL"
	schoolAddress = "Add:- DAYAL NAGAR, AMARNAGAR, FARIDABAD, 121003"
	schoolPhone   = "Phone No:- 9990020795"
	schoolContact = "E-mail:- drsunil095@gmail.com | Website:- https://soniapublicschool.org/"
	affiliationNo = "Affiliation No: 03072"
	schoolCode    = "School Code: 21316"
	udiseCode     = "UDISE Code: 06191612461"
	examTitle     = "PRE-BOARD EXAMINATION 2025-26"
	cardTitle     = "ADMIT CARD"
	scheduleTitle = "EXAMINATION SCHEDULE"
	footerNote    = "This is a computer-generated document. Please bring this admit card to the examination hall."
)

const (
	outerInset = 10.0
	innerInset = 15.0

	codesY = 22.0
	codesX = 20.0

	crestY    = 26.0
	crestSize = 30.0

	nameY    = 62.0
	addressY = 70.0
	phoneY   = 76.0
	contactY = 82.0

	dividerY     = 86.0
	dividerInset = 30.0

	examTitleY = 96.0
	cardTitleY = 104.0

	labelX        = 28.0
	valueX        = 75.0
	detailsY      = 115.0
	detailsHeight = 12.0

	// photo box offsets are measured from the right page edge
	photoBoxRight   = 55.0
	photoBoxY       = 105.0
	photoBoxW       = 30.0
	photoBoxH       = 35.0
	photoLabelRight = 40.0
	photoLabelY     = 125.0
	photoRight      = 54.0
	photoY          = 106.0
	photoW          = 28.0
	photoH          = 33.0

	tableX       = 20.0
	timingY      = 188.0
	titleBarY    = 190.0
	titleTextY   = 196.0
	headerRowY   = 200.0
	headerTextY  = 205.0
	rowHeight    = 8.0
	firstRowY    = 215.0
	dateColX     = 30.0
	dayColX      = 60.0
	subjectColX  = 100.0
	tableBorder  = 0.8
	signatureGap = 10.0

	ruleLeftFrom    = 30.0
	ruleLeftTo      = 80.0
	captionOffset   = 7.0
	studentCaptionX = 55.0
	signatureX      = 35.0
	signatureLift   = 12.0
	signatureW      = 40.0
	signatureH      = 12.0

	footerY = 275.0
)

// DOBLayout renders a date of birth the way an en-IN locale prints it (d/m/yyyy).
const DOBLayout = "2/1/2006"
