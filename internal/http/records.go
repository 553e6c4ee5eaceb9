package http

import (
	"context"
	"net/http"
	"time"

	"autonome/internal/core"
	"autonome/internal/events"
	"autonome/internal/ledger"
)

// collection describes the CRUD operations of one record type. Nil
// operations are not routed.
type collection[T any] struct {
	name   string
	list   func(ctx context.Context, r *http.Request) ([]T, error)
	get    func(ctx context.Context, id int64) (T, error)
	create func(ctx context.Context, v T) (T, error)
	update func(ctx context.Context, v T) (T, error)
	delete func(ctx context.Context, id int64) error

	idOf  func(v T) int64
	setID func(v *T, id int64)
	// prepare cleans request input before it reaches the store.
	prepare func(v *T)

	// servicePublished is set when the write path publishes its own events.
	servicePublished bool
	date             func(v T) time.Time
	amount           func(v T) int64
	// maxBody overrides the request body limit of writes.
	maxBody int64
}

func (c collection[T]) decode(w http.ResponseWriter, r *http.Request, v *T) error {
	if c.maxBody > 0 {
		return decodeJSONLimit(w, r, v, c.maxBody)
	}
	return decodeJSON(w, r, v)
}

func (c collection[T]) payload(id int64, v *T) events.RecordPayload {
	p := events.RecordPayload{Collection: c.name, RecordID: id}
	if v != nil && c.date != nil {
		p.Date = c.date(*v)
	}
	if v != nil && c.amount != nil {
		p.AmountCents = c.amount(*v)
	}
	return p
}

func mountCRUD[T any](s *Server, mux *http.ServeMux, c collection[T]) {
	base := "/api/" + c.name
	changed := func(ctx context.Context, p events.RecordPayload) {
		if c.servicePublished || s.events == nil {
			return
		}
		s.events.Publish(ctx, events.RecordChanged, p)
	}

	if c.list != nil {
		mux.HandleFunc("GET "+base, func(w http.ResponseWriter, r *http.Request) {
			items, err := c.list(r.Context(), r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if items == nil {
				items = []T{}
			}
			writeJSON(w, http.StatusOK, items)
		})
	}

	if c.get != nil {
		mux.HandleFunc("GET "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			v, err := c.get(r.Context(), id)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, v)
		})
	}

	if c.create != nil {
		mux.HandleFunc("POST "+base, func(w http.ResponseWriter, r *http.Request) {
			var v T
			if err := c.decode(w, r, &v); err != nil {
				writeError(w, r, err)
				return
			}
			c.setID(&v, 0)
			if c.prepare != nil {
				c.prepare(&v)
			}
			saved, err := c.create(r.Context(), v)
			if err != nil {
				writeError(w, r, err)
				return
			}
			changed(r.Context(), c.payload(c.idOf(saved), &saved))
			writeJSON(w, http.StatusCreated, saved)
		})
	}

	if c.update != nil {
		mux.HandleFunc("PUT "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			var v T
			if err := c.decode(w, r, &v); err != nil {
				writeError(w, r, err)
				return
			}
			c.setID(&v, id)
			if c.prepare != nil {
				c.prepare(&v)
			}
			saved, err := c.update(r.Context(), v)
			if err != nil {
				writeError(w, r, err)
				return
			}
			changed(r.Context(), c.payload(id, &saved))
			writeJSON(w, http.StatusOK, saved)
		})
	}

	if c.delete != nil {
		mux.HandleFunc("DELETE "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if err := c.delete(r.Context(), id); err != nil {
				writeError(w, r, err)
				return
			}
			changed(r.Context(), c.payload(id, nil))
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// updated stores v with save and returns the stored copy.
func updated[T any](save func(context.Context, T) error, load func(context.Context, int64) (T, error), id func(T) int64) func(context.Context, T) (T, error) {
	return func(ctx context.Context, v T) (T, error) {
		if err := save(ctx, v); err != nil {
			var zero T
			return zero, err
		}
		return load(ctx, id(v))
	}
}

// ranged adapts a range-filtered list to the collection list signature.
// The range comes from from/to or year/month query parameters.
func ranged[T any](s *Server, list func(context.Context, ledger.Range) ([]T, error)) func(context.Context, *http.Request) ([]T, error) {
	return func(ctx context.Context, r *http.Request) ([]T, error) {
		rng, err := rangeFromQuery(r.URL.Query(), s.now().In(s.loc), s.loc)
		if err != nil {
			return nil, err
		}
		return list(ctx, rng)
	}
}

func unranged[T any](list func(context.Context) ([]T, error)) func(context.Context, *http.Request) ([]T, error) {
	return func(ctx context.Context, _ *http.Request) ([]T, error) { return list(ctx) }
}

func (s *Server) mountRecords(mux *http.ServeMux) {
	st := s.store

	mountCRUD(s, mux, collection[core.Expense]{
		name:   "expenses",
		list:   ranged(s, st.ListExpenses),
		get:    st.GetExpense,
		create: s.expenses.CreateExpense,
		update: updated(s.expenses.UpdateExpense, st.GetExpense, func(e core.Expense) int64 { return e.ID }),
		delete: s.expenses.DeleteExpense,
		idOf:   func(e core.Expense) int64 { return e.ID },
		setID:  func(e *core.Expense, id int64) { e.ID = id },
		prepare: func(e *core.Expense) {
			e.Title = sanitizeInput(e.Title)
			e.Category = sanitizeInput(e.Category)
			e.Description = sanitizeInput(e.Description)
			e.RecurringItemID = nil
		},
		servicePublished: true,
	})

	mountCRUD(s, mux, collection[core.WorkSession]{
		name:   "sessions",
		list:   ranged(s, st.ListSessions),
		get:    st.GetSession,
		create: st.CreateSession,
		update: updated(st.UpdateSession, st.GetSession, func(ws core.WorkSession) int64 { return ws.ID }),
		delete: st.DeleteSession,
		idOf:   func(ws core.WorkSession) int64 { return ws.ID },
		setID:  func(ws *core.WorkSession, id int64) { ws.ID = id },
		prepare: func(ws *core.WorkSession) {
			ws.Notes = sanitizeInput(ws.Notes)
			// Earnings are derived from the interval and rate.
			ws.TotalEarned = nil
			if ws.EndTime != nil {
				earned := core.Earnings(ws.EndTime.Sub(ws.StartTime), ws.HourlyRate)
				ws.TotalEarned = &earned
			}
		},
		date:   func(ws core.WorkSession) time.Time { return ws.StartTime },
		amount: func(ws core.WorkSession) int64 { return ws.Earned().Cents },
	})

	mountCRUD(s, mux, collection[core.MileageEntry]{
		name:   "mileage",
		list:   ranged(s, st.ListMileage),
		get:    st.GetMileage,
		create: st.CreateMileage,
		update: updated(st.UpdateMileage, st.GetMileage, func(m core.MileageEntry) int64 { return m.ID }),
		delete: st.DeleteMileage,
		idOf:   func(m core.MileageEntry) int64 { return m.ID },
		setID:  func(m *core.MileageEntry, id int64) { m.ID = id },
		prepare: func(m *core.MileageEntry) {
			m.StartAddress = sanitizeInput(m.StartAddress)
			m.EndAddress = sanitizeInput(m.EndAddress)
			m.Purpose = sanitizeInput(m.Purpose)
		},
		date: func(m core.MileageEntry) time.Time { return m.Date },
	})

	// Incomes are written by the recurring scheduler only.
	mountCRUD(s, mux, collection[core.Income]{
		name:   "incomes",
		list:   ranged(s, st.ListIncomes),
		delete: st.DeleteIncome,
		idOf:   func(i core.Income) int64 { return i.ID },
		setID:  func(i *core.Income, id int64) { i.ID = id },
		date:   func(i core.Income) time.Time { return i.Date },
	})

	mountCRUD(s, mux, collection[core.Client]{
		name:   "clients",
		list:   unranged(st.ListClients),
		get:    st.GetClient,
		create: st.CreateClient,
		update: updated(st.UpdateClient, st.GetClient, func(c core.Client) int64 { return c.ID }),
		delete: st.DeleteClient,
		idOf:   func(c core.Client) int64 { return c.ID },
		setID:  func(c *core.Client, id int64) { c.ID = id },
		prepare: func(c *core.Client) {
			c.Name = sanitizeInput(c.Name)
			c.Email = sanitizeInput(c.Email)
			c.Phone = sanitizeInput(c.Phone)
			c.Address = sanitizeInput(c.Address)
			c.Notes = sanitizeInput(c.Notes)
		},
	})

	mountCRUD(s, mux, collection[core.Project]{
		name:   "projects",
		list:   unranged(st.ListProjects),
		get:    st.GetProject,
		create: st.CreateProject,
		update: updated(st.UpdateProject, st.GetProject, func(p core.Project) int64 { return p.ID }),
		delete: st.DeleteProject,
		idOf:   func(p core.Project) int64 { return p.ID },
		setID:  func(p *core.Project, id int64) { p.ID = id },
		prepare: func(p *core.Project) {
			p.Name = sanitizeInput(p.Name)
			p.Description = sanitizeInput(p.Description)
			if p.Status == "" {
				p.Status = core.ProjectActive
			}
		},
	})

	mountCRUD(s, mux, collection[core.Job]{
		name: "jobs",
		list: func(ctx context.Context, r *http.Request) ([]core.Job, error) {
			if status := r.URL.Query().Get("status"); status != "" {
				return st.ListJobsByStatus(ctx, core.JobStatus(status))
			}
			return ranged(s, st.ListJobs)(ctx, r)
		},
		get:    st.GetJob,
		create: st.CreateJob,
		update: updated(st.UpdateJob, st.GetJob, func(j core.Job) int64 { return j.ID }),
		delete: st.DeleteJob,
		idOf:   func(j core.Job) int64 { return j.ID },
		setID:  func(j *core.Job, id int64) { j.ID = id },
		prepare: func(j *core.Job) {
			j.ClientName = sanitizeInput(j.ClientName)
			j.Description = sanitizeInput(j.Description)
			j.Address = sanitizeInput(j.Address)
			j.Notes = sanitizeInput(j.Notes)
			if j.Status == "" {
				j.Status = core.JobScheduled
			}
		},
		date: func(j core.Job) time.Time { return j.Date },
	})

	mountCRUD(s, mux, collection[core.Invoice]{
		name:   "invoices",
		list:   ranged(s, s.invoices.ListInvoices),
		get:    s.invoices.GetInvoice,
		create: s.invoices.CreateInvoice,
		update: s.invoices.UpdateInvoice,
		delete: st.DeleteInvoice,
		idOf:   func(inv core.Invoice) int64 { return inv.ID },
		setID:  func(inv *core.Invoice, id int64) { inv.ID = id },
		prepare: func(inv *core.Invoice) {
			inv.ClientName = sanitizeInput(inv.ClientName)
			inv.Notes = sanitizeInput(inv.Notes)
			for i := range inv.Items {
				inv.Items[i].Description = sanitizeInput(inv.Items[i].Description)
			}
		},
		date:   func(inv core.Invoice) time.Time { return inv.Date },
		amount: func(inv core.Invoice) int64 { return inv.Total.Cents },
	})

	mountCRUD(s, mux, collection[core.Document]{
		name:   "documents",
		list:   ranged(s, st.ListDocuments),
		get:    st.GetDocument,
		create: st.CreateDocument,
		update: updated(st.UpdateDocument, st.GetDocument, func(d core.Document) int64 { return d.ID }),
		delete: st.DeleteDocument,
		idOf:   func(d core.Document) int64 { return d.ID },
		setID:  func(d *core.Document, id int64) { d.ID = id },
		prepare: func(d *core.Document) {
			d.Title = sanitizeInput(d.Title)
			if d.Type == "" {
				d.Type = core.DocumentTypeFor(d.MimeType)
			}
			if d.Date.IsZero() {
				d.Date = s.now()
			}
		},
		date:    func(d core.Document) time.Time { return d.Date },
		maxBody: maxUploadBytes,
	})

	mountCRUD(s, mux, collection[core.RecurringItem]{
		name:   "recurring",
		list:   unranged(st.ListRecurringItems),
		get:    st.GetRecurringItem,
		create: s.createRecurring,
		update: s.updateRecurring,
		delete: st.DeleteRecurringItem,
		idOf:   func(ri core.RecurringItem) int64 { return ri.ID },
		setID:  func(ri *core.RecurringItem, id int64) { ri.ID = id },
		prepare: func(ri *core.RecurringItem) {
			ri.Title = sanitizeInput(ri.Title)
			ri.Category = sanitizeInput(ri.Category)
		},
	})
}

// createRecurring stores a new template. The first due date is the start
// date unless the caller sets one.
func (s *Server) createRecurring(ctx context.Context, ri core.RecurringItem) (core.RecurringItem, error) {
	if ri.NextDate.IsZero() {
		ri.NextDate = ri.StartDate
	}
	ri.LastGeneratedDate = nil
	return s.store.CreateRecurringItem(ctx, ri)
}

// updateRecurring keeps the scheduler-owned fields of the stored item: the
// last generated date always, the next date when the caller leaves it out.
func (s *Server) updateRecurring(ctx context.Context, ri core.RecurringItem) (core.RecurringItem, error) {
	cur, err := s.store.GetRecurringItem(ctx, ri.ID)
	if err != nil {
		return core.RecurringItem{}, err
	}
	if ri.NextDate.IsZero() {
		ri.NextDate = cur.NextDate
	}
	ri.LastGeneratedDate = cur.LastGeneratedDate
	if err := s.store.UpdateRecurringItem(ctx, ri); err != nil {
		return core.RecurringItem{}, err
	}
	return s.store.GetRecurringItem(ctx, ri.ID)
}
