package ics

const festivalFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//example//festivals//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:mahavir@example.org\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20230403\r\n" +
	"RRULE:FREQ=YEARLY\r\n" +
	"SUMMARY:Mahavir Jayanti\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:diwali-2025@example.org\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20251021\r\n" +
	"SUMMARY:Diwali\r\n" +
	"DESCRIPTION:Festival of lights\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:purnima@example.org\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20250113\r\n" +
	"RRULE:FREQ=MONTHLY;COUNT=3\r\n" +
	"EXDATE;VALUE=DATE:20250213\r\n" +
	"SUMMARY:Purnima\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:purnima@example.org\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"RECURRENCE-ID;VALUE=DATE:20250313\r\n" +
	"DTSTART;VALUE=DATE:20250314\r\n" +
	"SUMMARY:Holi Purnima\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:cancelled@example.org\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20250501\r\n" +
	"STATUS:CANCELLED\r\n" +
	"SUMMARY:Called off\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20250601\r\n" +
	"SUMMARY:No UID\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"
