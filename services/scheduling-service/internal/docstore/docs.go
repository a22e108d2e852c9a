package docstore

import (
	"fmt"
	"time"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
)

// Documents are kept separate from the domain types so bson layout can evolve on its own.

type activityDoc struct {
	ID                        string    `bson:"_id"`
	Name                      string    `bson:"name"`
	Description               string    `bson:"description,omitempty"`
	DurationMinutes           int       `bson:"durationMinutes"`
	MinimumBookingNoticeHours int       `bson:"minimumBookingNoticeHours"`
	RequiredFields            []string  `bson:"requiredFields"`
	Price                     float64   `bson:"price"`
	Color                     string    `bson:"color,omitempty"`
	CreatedAt                 time.Time `bson:"createdAt"`
	UpdatedAt                 time.Time `bson:"updatedAt"`
}

func (d activityDoc) toModel() model.Activity {
	return model.Activity{
		ID:                        d.ID,
		Name:                      d.Name,
		Description:               d.Description,
		DurationMinutes:           d.DurationMinutes,
		MinimumBookingNoticeHours: d.MinimumBookingNoticeHours,
		RequiredFields:            d.RequiredFields,
		Price:                     d.Price,
		Color:                     d.Color,
		CreatedAt:                 d.CreatedAt,
		UpdatedAt:                 d.UpdatedAt,
	}
}

func activityToDoc(a model.Activity) activityDoc {
	fields := a.RequiredFields
	if fields == nil {
		fields = []string{}
	}
	return activityDoc{
		ID:                        a.ID,
		Name:                      a.Name,
		Description:               a.Description,
		DurationMinutes:           a.DurationMinutes,
		MinimumBookingNoticeHours: a.MinimumBookingNoticeHours,
		RequiredFields:            fields,
		Price:                     a.Price,
		Color:                     a.Color,
		CreatedAt:                 a.CreatedAt,
		UpdatedAt:                 a.UpdatedAt,
	}
}

const availabilityKey = "availability"

type weeklySlotDoc struct {
	DayOfWeek int    `bson:"dayOfWeek"`
	StartTime string `bson:"startTime"`
	EndTime   string `bson:"endTime"`
}

type exceptionDoc struct {
	StartDate string `bson:"startDate"`
	EndDate   string `bson:"endDate"`
	StartTime string `bson:"startTime,omitempty"`
	EndTime   string `bson:"endTime,omitempty"`
	Reason    string `bson:"reason,omitempty"`
}

type availabilityDoc struct {
	ID          string          `bson:"_id"`
	Key         string          `bson:"key"`
	WeeklySlots []weeklySlotDoc `bson:"weeklySlots"`
	Exceptions  []exceptionDoc  `bson:"exceptions"`
	CreatedAt   time.Time       `bson:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt"`
}

func availabilityToDoc(a availability.Availability) availabilityDoc {
	doc := availabilityDoc{
		ID:          a.ID,
		Key:         availabilityKey,
		WeeklySlots: make([]weeklySlotDoc, 0, len(a.WeeklySlots)),
		Exceptions:  make([]exceptionDoc, 0, len(a.Exceptions)),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	for _, ws := range a.WeeklySlots {
		doc.WeeklySlots = append(doc.WeeklySlots, weeklySlotDoc{
			DayOfWeek: int(ws.Day),
			StartTime: ws.Start.String(),
			EndTime:   ws.End.String(),
		})
	}
	for _, ex := range a.Exceptions {
		ed := exceptionDoc{
			StartDate: ex.StartDate.String(),
			EndDate:   ex.EndDate.String(),
			Reason:    ex.Reason,
		}
		if !ex.IsFullDay() {
			ed.StartTime = ex.StartTime.String()
			ed.EndTime = ex.EndTime.String()
		}
		doc.Exceptions = append(doc.Exceptions, ed)
	}
	return doc
}

func (d availabilityDoc) toModel() (availability.Availability, error) {
	a := availability.Availability{
		ID:          d.ID,
		WeeklySlots: make([]availability.WeeklySlot, 0, len(d.WeeklySlots)),
		Exceptions:  make([]availability.Exception, 0, len(d.Exceptions)),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for i, ws := range d.WeeklySlots {
		slot, err := availability.NewWeeklySlot(ws.DayOfWeek, ws.StartTime, ws.EndTime)
		if err != nil {
			return availability.Availability{}, fmt.Errorf("stored weekly slot %d: %w", i, err)
		}
		a.WeeklySlots = append(a.WeeklySlots, slot)
	}
	for i, ed := range d.Exceptions {
		ex, err := availability.NewException(ed.StartDate, ed.EndDate, ed.StartTime, ed.EndTime, ed.Reason)
		if err != nil {
			return availability.Availability{}, fmt.Errorf("stored exception %d: %w", i, err)
		}
		a.Exceptions = append(a.Exceptions, ex)
	}
	return a, nil
}

type clientDoc struct {
	Name  string            `bson:"name"`
	Email string            `bson:"email"`
	Phone string            `bson:"phone,omitempty"`
	Notes string            `bson:"notes,omitempty"`
	Extra map[string]string `bson:"extra,omitempty"`
}

// appointmentDoc stores endDateTime and an active flag so overlap queries and the
// partial unique index need no computed fields.
type appointmentDoc struct {
	ID                      string    `bson:"_id"`
	ActivityID              string    `bson:"activityId"`
	ActivityName            string    `bson:"activityName"`
	ActivityDurationMinutes int       `bson:"activityDurationMinutes"`
	ClientInfo              clientDoc `bson:"clientInfo"`
	DateTime                time.Time `bson:"dateTime"`
	EndDateTime             time.Time `bson:"endDateTime"`
	Status                  string    `bson:"status"`
	Active                  bool      `bson:"active"`
	Version                 int64     `bson:"version"`
	ReminderSent            bool      `bson:"reminderSent"`
	CreatedAt               time.Time `bson:"createdAt"`
	UpdatedAt               time.Time `bson:"updatedAt"`
}

func appointmentToDoc(a model.Appointment) appointmentDoc {
	return appointmentDoc{
		ID:                      a.ID,
		ActivityID:              a.ActivityID,
		ActivityName:            a.ActivityName,
		ActivityDurationMinutes: a.ActivityDurationMinutes,
		ClientInfo: clientDoc{
			Name:  a.Client.Name,
			Email: a.Client.Email,
			Phone: a.Client.Phone,
			Notes: a.Client.Notes,
			Extra: a.Client.Extra,
		},
		DateTime:     a.DateTime.UTC(),
		EndDateTime:  a.EndDateTime().UTC(),
		Status:       string(a.Status),
		Active:       a.Status.Active(),
		Version:      a.Version,
		ReminderSent: a.ReminderSent,
		CreatedAt:    a.CreatedAt.UTC(),
		UpdatedAt:    a.UpdatedAt.UTC(),
	}
}

func (d appointmentDoc) toModel() (model.Appointment, error) {
	status, err := model.ParseStatus(d.Status)
	if err != nil {
		return model.Appointment{}, err
	}
	return model.Appointment{
		ID:                      d.ID,
		ActivityID:              d.ActivityID,
		ActivityName:            d.ActivityName,
		ActivityDurationMinutes: d.ActivityDurationMinutes,
		Client: model.ClientInfo{
			Name:  d.ClientInfo.Name,
			Email: d.ClientInfo.Email,
			Phone: d.ClientInfo.Phone,
			Notes: d.ClientInfo.Notes,
			Extra: d.ClientInfo.Extra,
		},
		DateTime:     d.DateTime,
		Status:       status,
		Version:      d.Version,
		ReminderSent: d.ReminderSent,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}
